package internal

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewDebugHandler serves the room metrics on /metrics and, when history is
// enabled, the recorded frames of the room on /history?limit=N. N never
// exceeds limit, zero asking for all of it.
func NewDebugHandler(log *slog.Logger, room string, gatherer prometheus.Gatherer,
	history contract.IHistoryRepository, limit int) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("/history", func(w http.ResponseWriter, r *http.Request) {
		if history == nil {
			http.Error(w, "history is not enabled", http.StatusNotFound)
			return
		}
		n := limit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				http.Error(w, fmt.Sprintf("invalid limit %q", raw), http.StatusBadRequest)
				return
			}
			n = parsed
		}
		if limit > 0 && (n == 0 || n > limit) {
			n = limit
		}

		records, err := history.GetRecords(room, n)
		if err != nil {
			log.Warn("History lookup failed", "error", err)
			http.Error(w, "history lookup failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		WriteHistory(w, records)
	})
	return mux
}

// WriteHistory renders records as a table, one row per frame.
func WriteHistory(w io.Writer, records []domain.Record) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"At", "ID", "Author", "Size", "Payload"})
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

	for _, record := range records {
		// First 8 characters of the id are enough to tell rows apart
		displayID := record.ID.String()[:8]
		table.Append([]string{
			record.At.Format("15:04:05.000"),
			displayID,
			record.Author,
			strconv.Itoa(len(record.Payload)),
			strconv.Quote(string(record.Payload)),
		})
	}
	table.Render()
}
