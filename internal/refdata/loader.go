package refdata

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"mint-radar/internal/storage"
)

// LoadWhalesFile reads a whale watchlist file: one address per line,
// optionally followed by whitespace and a free-text tag. Blank lines and
// lines starting with '#' are skipped.
func LoadWhalesFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open whales file: %w", err)
	}
	defer f.Close()

	whales := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		addr, tag, _ := strings.Cut(line, " ")
		whales[addr] = strings.TrimSpace(tag)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read whales file: %w", err)
	}
	return whales, nil
}

// LoadLabelsFile reads the exchange/bridge label map from JSON.
// Two layouts are accepted: address -> string (legacy, roles inferred from
// substrings) and address -> {"text": ..., "roles": [...]}.
func LoadLabelsFile(path string) (map[string]Label, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read labels file: %w", err)
	}

	labels := make(map[string]Label)

	var rich map[string]Label
	if err := json.Unmarshal(data, &rich); err == nil {
		for a, l := range rich {
			labels[a] = l
		}
		return labels, nil
	}

	var legacy map[string]string
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("parse labels file: %w", err)
	}
	for a, text := range legacy {
		labels[a] = Label{Text: text}
	}
	return labels, nil
}

// LoadSnapshot assembles a snapshot from optional files and the persisted
// watchlist. File paths may be empty; the store may be nil. Persisted
// watchlist entries override file entries with the same address.
func LoadSnapshot(ctx context.Context, whalesPath, labelsPath string, watchlist storage.WatchlistStore) (*Snapshot, error) {
	whales := make(map[string]string)
	if whalesPath != "" {
		fromFile, err := LoadWhalesFile(whalesPath)
		if err != nil {
			return nil, err
		}
		for a, tag := range fromFile {
			whales[a] = tag
		}
	}

	if watchlist != nil {
		persisted, err := watchlist.GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("load persisted watchlist: %w", err)
		}
		for a, tag := range persisted {
			whales[a] = tag
		}
	}

	var labels map[string]Label
	if labelsPath != "" {
		var err error
		labels, err = LoadLabelsFile(labelsPath)
		if err != nil {
			return nil, err
		}
	}

	return NewSnapshot(whales, labels, DefaultAMMPrograms(), DefaultNoiseMints()), nil
}
