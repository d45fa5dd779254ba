package measure

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// ReadAll loads every (parameter, metric) row from the table at path, mapping
// columns by header name so column order does not matter. A table with a
// header and zero rows yields empty slices without error.
func ReadAll(path string, schema Schema) (parameters, metrics []float64, err error) {
	file, openErr := os.Open(path)
	if openErr != nil {
		return nil, nil, fmt.Errorf("open table: %w", openErr)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	records, readErr := reader.ReadAll()
	if readErr != nil {
		return nil, nil, fmt.Errorf("read table %s: %w", path, readErr)
	}

	if len(records) == 0 {
		return nil, nil, &SchemaError{Path: path, Want: schema, Header: nil}
	}

	header := records[0]
	if !schema.Matches(header) {
		return nil, nil, &SchemaError{Path: path, Want: schema, Header: header}
	}

	paramCol := 0
	if header[0] != schema.Parameter {
		paramCol = 1
	}

	metricCol := 1 - paramCol

	rows := records[1:]
	parameters = make([]float64, 0, len(rows))
	metrics = make([]float64, 0, len(rows))

	for i, row := range rows {
		parameter, paramErr := strconv.ParseFloat(row[paramCol], 64)
		if paramErr != nil {
			return nil, nil, fmt.Errorf("table %s row %d: %w", path, i+1, paramErr)
		}

		metric, metricErr := strconv.ParseFloat(row[metricCol], 64)
		if metricErr != nil {
			return nil, nil, fmt.Errorf("table %s row %d: %w", path, i+1, metricErr)
		}

		parameters = append(parameters, parameter)
		metrics = append(metrics, metric)
	}

	return parameters, metrics, nil
}
