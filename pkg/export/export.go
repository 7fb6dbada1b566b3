// Package export writes solve results for downstream reporting. The combined
// text format mirrors the historical result files; CSV and JSON writers are
// provided for newer consumers.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gridsched/revs/core/model"
)

// OutputDir returns the per-run directory: {base}/{networkID}-com{C}/{strategy}.
func OutputDir(base string, networkID, community int, strategy string) string {
	return filepath.Join(base, fmt.Sprintf("%d-com%d", networkID, community), strategy)
}

// Filename names a result file after the scenario parameters:
// adopt{A}-rating{R}-seed{S}.txt with the rating in watts.
func Filename(adoption, ratingW int, seed int64) string {
	return fmt.Sprintf("adopt%d-rating%d-seed%d.txt", adoption, ratingW, seed)
}

// WriteCombined writes the per-home residual load, charging and SoC series as
// whitespace-separated lines, one series per line, followed by the failed
// home list and, for distributed runs, the final residual.
func WriteCombined(w io.Writer, res model.Result) error {
	ids := sortedIDs(res)
	for _, id := range ids {
		s := res.Schedules[id]
		for _, line := range []struct {
			tag    string
			series []float64
		}{
			{"res", s.Residual},
			{"ev", s.Charging},
			{"soc", s.SoC},
		} {
			if _, err := fmt.Fprintf(w, "%s %s %s\n", id, line.tag, formatSeries(line.series)); err != nil {
				return err
			}
		}
	}
	if failed := res.FailedIDs(); len(failed) > 0 {
		sort.Strings(failed)
		if _, err := fmt.Fprintf(w, "failed %s\n", strings.Join(failed, " ")); err != nil {
			return err
		}
	}
	if res.Strategy == model.StrategyDistributed {
		if _, err := fmt.Fprintf(w, "residual %s\n", strconv.FormatFloat(res.Residual, 'g', -1, 64)); err != nil {
			return err
		}
	}
	return nil
}

// WriteCSV writes one row per home and hour.
func WriteCSV(w io.Writer, res model.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"home_id", "hour", "residual_kw", "charging_kw", "soc"}); err != nil {
		return err
	}
	for _, id := range sortedIDs(res) {
		s := res.Schedules[id]
		for t := range s.Charging {
			rec := []string{
				id,
				strconv.Itoa(t),
				strconv.FormatFloat(s.Residual[t], 'f', -1, 64),
				strconv.FormatFloat(s.Charging[t], 'f', -1, 64),
				strconv.FormatFloat(s.SoC[t], 'f', -1, 64),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// jsonResult is the serializable projection of a Result; errors become their
// messages.
type jsonResult struct {
	Strategy   string                    `json:"strategy"`
	RunID      string                    `json:"run_id"`
	Schedules  map[string]model.Schedule `json:"schedules"`
	Failed     map[string]string         `json:"failed,omitempty"`
	Residual   float64                   `json:"residual"`
	Iterations int                       `json:"iterations"`
	Converged  bool                      `json:"converged"`
	History    []float64                 `json:"history,omitempty"`
}

// WriteJSON writes the whole result to w in JSON format.
func WriteJSON(w io.Writer, res model.Result) error {
	out := jsonResult{
		Strategy:   res.Strategy,
		RunID:      res.RunID,
		Schedules:  res.Schedules,
		Residual:   res.Residual,
		Iterations: res.Iterations,
		Converged:  res.Converged,
		History:    res.History,
	}
	if len(res.Failed) > 0 {
		out.Failed = make(map[string]string, len(res.Failed))
		for id, err := range res.Failed {
			out.Failed[id] = err.Error()
		}
	}
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

func sortedIDs(res model.Result) []string {
	ids := make([]string, 0, len(res.Schedules))
	for id := range res.Schedules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func formatSeries(series []float64) string {
	parts := make([]string, len(series))
	for i, v := range series {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}
