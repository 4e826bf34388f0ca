package headshape

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ReadCloudFile reads a head-shape point cloud from disk. The format is
// chosen by extension: ".json" for a JSON point array, anything else for the
// plain-text digitizer format (one "x y z" triple per line, "%" or "#"
// comment lines). Failures are reported as *LoadError.
func ReadCloudFile(path string) (Cloud, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	var cloud Cloud
	if strings.EqualFold(filepath.Ext(path), ".json") {
		cloud, err = ParseCloudJSON(data)
	} else {
		cloud, err = ParseCloudText(data)
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return cloud, nil
}

// ParseCloudJSON parses a JSON array of {x, y, z} points.
func ParseCloudJSON(data []byte) (Cloud, error) {
	var cloud Cloud
	if err := json.Unmarshal(data, &cloud); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	return cloud, nil
}

// ParseCloudText parses the plain-text digitizer format: whitespace-separated
// coordinate triples, one point per line. Blank lines and lines starting with
// "%" or "#" are skipped. Extra columns beyond the third are ignored.
func ParseCloudText(data []byte) (Cloud, error) {
	cloud := Cloud{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "%") || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("line %d: want 3 coordinates, got %d", lineNo, len(fields))
		}
		var coords [3]float64
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: parsing coordinate %q: %w", lineNo, fields[i], err)
			}
			coords[i] = v
		}
		cloud = append(cloud, Point{X: coords[0], Y: coords[1], Z: coords[2]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning: %w", err)
	}
	return cloud, nil
}

// WriteCloudText writes a cloud in the plain-text digitizer format.
func WriteCloudText(path string, cloud Cloud) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%% head-shape point cloud, %d points (mm)\n", len(cloud))
	for _, p := range cloud {
		fmt.Fprintf(&buf, "%.4f\t%.4f\t%.4f\n", p.X, p.Y, p.Z)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing cloud file: %w", err)
	}
	return nil
}
