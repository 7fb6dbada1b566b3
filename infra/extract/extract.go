// Package extract loads the external inputs of a scheduling run: the hourly
// tariff, per-home baseline loads, the distribution network and the community
// membership, plus the seeded sampling of which homes adopt an EV. The core
// assumes these inputs are validated and fully populated on entry; every
// loader here rejects malformed data before handing it over.
package extract

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gridsched/revs/core/model"
)

// shiftSeries rotates a series so the configured shift hour becomes index 0,
// aligning data recorded in wall-clock hours to the scheduling day.
func shiftSeries(raw []float64, shift int) []float64 {
	n := len(raw)
	if n == 0 || shift%n == 0 {
		out := make([]float64, n)
		copy(out, raw)
		return out
	}
	shift = ((shift % n) + n) % n
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = raw[(i+shift)%n]
	}
	return out
}

// LoadTariff reads {dir}/tariff-{id}.csv, rows of "hour,price", and applies
// the hour shift.
func LoadTariff(dir, id string, shift int) (model.Tariff, error) {
	path := filepath.Join(dir, fmt.Sprintf("tariff-%s.csv", id))
	f, err := os.Open(path)
	if err != nil {
		return model.Tariff{}, fmt.Errorf("open tariff: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return model.Tariff{}, fmt.Errorf("read tariff %s: %w", path, err)
	}
	prices := make([]float64, 0, len(rows))
	for i, row := range rows {
		if len(row) < 2 {
			return model.Tariff{}, fmt.Errorf("tariff %s: row %d has %d fields", path, i+1, len(row))
		}
		if i == 0 && !isNumeric(row[1]) {
			continue // header
		}
		p, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			return model.Tariff{}, fmt.Errorf("tariff %s row %d: %w", path, i+1, err)
		}
		prices = append(prices, p)
	}
	t := model.Tariff{ID: id, Prices: shiftSeries(prices, shift)}
	if err := t.Validate(); err != nil {
		return model.Tariff{}, err
	}
	return t, nil
}

// LoadHomes reads {dir}/{regionID}-home-load.csv, rows of a home identifier
// followed by its hourly loads, and applies the hour shift. Homes are
// returned without EV parameters; AttachEV stamps those onto the sampled
// adopters.
func LoadHomes(dir string, regionID, shift int) (map[string]model.Home, error) {
	path := filepath.Join(dir, fmt.Sprintf("%d-home-load.csv", regionID))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open home loads: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read home loads %s: %w", path, err)
	}

	homes := make(map[string]model.Home, len(rows))
	horizon := -1
	for i, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("home loads %s: row %d has %d fields", path, i+1, len(row))
		}
		if i == 0 && !isNumeric(row[1]) {
			continue // header
		}
		id := strings.TrimSpace(row[0])
		load := make([]float64, 0, len(row)-1)
		for j, field := range row[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("home loads %s row %d col %d: %w", path, i+1, j+2, err)
			}
			load = append(load, v)
		}
		if horizon == -1 {
			horizon = len(load)
		} else if len(load) != horizon {
			return nil, fmt.Errorf("home loads %s: home %s has %d hours, expected %d", path, id, len(load), horizon)
		}
		if _, dup := homes[id]; dup {
			return nil, fmt.Errorf("home loads %s: duplicate home %s", path, id)
		}
		homes[id] = model.Home{ID: id, Baseline: shiftSeries(load, shift)}
	}
	if len(homes) == 0 {
		return nil, fmt.Errorf("home loads %s: no homes", path)
	}
	return homes, nil
}

// LoadNetwork reads and validates {dir}/{networkID}-net.json.
func LoadNetwork(dir string, networkID int) (model.Network, error) {
	path := filepath.Join(dir, fmt.Sprintf("%d-net.json", networkID))
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Network{}, fmt.Errorf("open network: %w", err)
	}
	var net model.Network
	if err := json.Unmarshal(data, &net); err != nil {
		return model.Network{}, fmt.Errorf("parse network %s: %w", path, err)
	}
	if net.ID == 0 {
		net.ID = networkID
	}
	if err := net.Validate(); err != nil {
		return model.Network{}, err
	}
	return net, nil
}

// LoadCommunity reads {dir}/{networkID}-com.txt, one community per line as
// whitespace-separated home identifiers, and returns the community at the
// given zero-based index.
func LoadCommunity(dir string, networkID, index int) ([]string, error) {
	path := filepath.Join(dir, fmt.Sprintf("%d-com.txt", networkID))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open community: %w", err)
	}
	defer f.Close()

	line := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if line == index {
			return strings.Fields(text), nil
		}
		line++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read community %s: %w", path, err)
	}
	return nil, fmt.Errorf("community %s: index %d out of range, file has %d communities", path, index, line)
}

// SampleAdopters picks the EV-owning subset of a community: a seeded shuffle
// without replacement, truncated at the adoption percentage. The same seed
// always selects the same homes.
func SampleAdopters(community []string, adoption float64, seed int64) []string {
	pool := make([]string, len(community))
	copy(pool, community)
	sort.Strings(pool)

	r := rand.New(rand.NewSource(seed))
	r.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	n := int(adoption / 100 * float64(len(pool)))
	chosen := pool[:n]
	sort.Strings(chosen)
	return chosen
}

// AttachEV stamps the EV charging parameters onto the sampled homes.
func AttachEV(homes map[string]model.Home, evHomes []string, params model.EVParams) error {
	for _, id := range evHomes {
		h, ok := homes[id]
		if !ok {
			return fmt.Errorf("extract: EV home %s not in load data", id)
		}
		h.HasEV = true
		h.EV = params
		homes[id] = h
	}
	return nil
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}
