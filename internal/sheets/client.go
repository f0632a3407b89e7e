// Package sheets fetches published spreadsheet CSV exports and parses them
// into header-keyed raw rows.
package sheets

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"citygrid/core-go/internal/device"
)

// Source addresses one published sheet tab. IDField names the column a row
// must carry to count as a record at all.
type Source struct {
	Category device.Category `yaml:"category"`
	URL      string          `yaml:"url"`
	IDField  string          `yaml:"id_field"`
}

type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

// FetchRows retrieves and parses one source. The first CSV record is the
// header; duplicate header names keep the first column. Rows whose IDField
// is empty after trimming are dropped. Ragged rows are tolerated, with
// missing cells read as empty.
func (c *Client) FetchRows(ctx context.Context, src Source) ([]device.RawRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s sheet: %w", src.Category, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s sheet: unexpected status %s", src.Category, resp.Status)
	}

	rows, err := ParseRows(resp.Body, src.IDField)
	if err != nil {
		return nil, fmt.Errorf("parse %s sheet: %w", src.Category, err)
	}
	return rows, nil
}

// ParseRows decodes header-plus-rows CSV text into raw rows, dropping rows
// with an empty identifier column.
func ParseRows(r io.Reader, idField string) ([]device.RawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	var rows []device.RawRow
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}

		row := make(device.RawRow, len(header))
		for i, key := range header {
			if key == "" {
				continue
			}
			if _, seen := row[key]; seen {
				continue
			}
			if i < len(record) {
				row[key] = record[i]
			} else {
				row[key] = ""
			}
		}

		if strings.TrimSpace(row[idField]) == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}
