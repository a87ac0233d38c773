package observability

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/samber/lo"
)

// WriteSummary renders the room's own metrics as a table, one row per series.
func WriteSummary(w io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Labels", "Value"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, family := range families {
		name := family.GetName()
		if !strings.HasPrefix(name, Namespace+"_") {
			continue
		}
		short := strings.TrimPrefix(name, Namespace+"_")
		for _, metric := range family.GetMetric() {
			table.Append([]string{short, formatLabels(metric.GetLabel()), formatValue(family.GetType(), metric)})
		}
	}
	table.Render()
	return nil
}

func formatLabels(pairs []*dto.LabelPair) string {
	labels := lo.FilterMap(pairs, func(pair *dto.LabelPair, _ int) (string, bool) {
		return pair.GetName() + "=" + pair.GetValue(), pair.GetName() != "room"
	})
	sort.Strings(labels)
	if len(labels) == 0 {
		return "-"
	}
	return strings.Join(labels, ",")
}

func formatValue(kind dto.MetricType, metric *dto.Metric) string {
	var v float64
	switch kind {
	case dto.MetricType_COUNTER:
		v = metric.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		v = metric.GetGauge().GetValue()
	default:
		return "-"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
