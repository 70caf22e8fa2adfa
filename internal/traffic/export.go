package traffic

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// modelFileVersion guards the exported pattern format.
const modelFileVersion = "1.0"

type exportedPattern struct {
	Pincode    string  `json:"pincode"`
	Hour       int     `json:"hour"`
	DayOfWeek  int     `json:"day_of_week"`
	SpeedKmh   float64 `json:"speed_kmh"`
	Samples    int     `json:"samples"`
	Confidence float64 `json:"confidence"`
}

type modelFile struct {
	Version         string            `json:"version"`
	ExportedAt      time.Time         `json:"exported_at"`
	LearnedPatterns []exportedPattern `json:"learned_patterns"`
}

// Export writes the learned patterns as versioned JSON so they can be
// reloaded by later runs.
func (m *Model) Export(path string) error {
	file := modelFile{
		Version:    modelFileVersion,
		ExportedAt: time.Now().UTC(),
	}
	for key, p := range m.patterns {
		file.LearnedPatterns = append(file.LearnedPatterns, exportedPattern{
			Pincode:    key.Pincode,
			Hour:       key.Hour,
			DayOfWeek:  key.Day,
			SpeedKmh:   p.SpeedKmh,
			Samples:    p.Samples,
			Confidence: p.Confidence,
		})
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal traffic model: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write traffic model: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace traffic model: %w", err)
	}

	m.logger.Info("exported traffic model", "path", path, "patterns", len(m.patterns))
	return nil
}

// Import loads previously exported patterns, replacing the current set.
func (m *Model) Import(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read traffic model: %w", err)
	}

	var file modelFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse traffic model: %w", err)
	}
	if file.Version != modelFileVersion {
		return fmt.Errorf("unsupported traffic model version %q", file.Version)
	}

	patterns := make(map[PatternKey]LearnedPattern, len(file.LearnedPatterns))
	for _, p := range file.LearnedPatterns {
		key := PatternKey{Pincode: p.Pincode, Hour: p.Hour, Day: p.DayOfWeek}
		patterns[key] = LearnedPattern{
			SpeedKmh:   p.SpeedKmh,
			Samples:    p.Samples,
			Confidence: p.Confidence,
		}
	}
	m.patterns = patterns

	m.logger.Info("imported traffic model", "path", path, "patterns", len(patterns))
	return nil
}
