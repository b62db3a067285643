// Package export builds the per-category spreadsheets of reviewed photos.
package export

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"ecopark-admin/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

// Header is the fixed first row of every export sheet
var Header = []string{"WKT", "Name", "Description"}

// Row is one exported photo
type Row struct {
	WKT         string
	Name        string
	Description string
}

// Group holds the rows of one category
type Group struct {
	Category models.Category
	Rows     []Row
}

// FileName returns the workbook name for a category, e.g. 조류_reviewed_data.xlsx
func FileName(c models.Category) string {
	return c.Label() + "_reviewed_data.xlsx"
}

// PointWKT formats a coordinate as a well-known-text point (longitude first)
func PointWKT(lat, lng float64) string {
	return "POINT(" + strconv.FormatFloat(lng, 'f', -1, 64) + " " + strconv.FormatFloat(lat, 'f', -1, 64) + ")"
}

// NewRow builds the row for a photo from its first image. It reports false
// for photos without images.
func NewRow(p *models.Photo, description string) (Row, bool) {
	if len(p.Images) == 0 {
		return Row{}, false
	}
	first := p.Images[0]
	return Row{
		WKT:         PointWKT(first.Latitude, first.Longitude),
		Name:        p.Name,
		Description: description,
	}, true
}

// GroupByCategory sorts rows into one group per category, in the order of
// models.Categories followed by unknown categories alphabetically
func GroupByCategory(categories []models.Category, rows []Row) []Group {
	index := make(map[models.Category]int)
	var groups []Group
	for i, c := range categories {
		gi, ok := index[c]
		if !ok {
			gi = len(groups)
			index[c] = gi
			groups = append(groups, Group{Category: c})
		}
		groups[gi].Rows = append(groups[gi].Rows, rows[i])
	}

	order := make(map[models.Category]int)
	for i, c := range models.Categories() {
		order[c] = i
	}
	sort.SliceStable(groups, func(i, j int) bool {
		oi, iKnown := order[groups[i].Category]
		oj, jKnown := order[groups[j].Category]
		switch {
		case iKnown && jKnown:
			return oi < oj
		case iKnown != jKnown:
			return iKnown
		}
		return groups[i].Category < groups[j].Category
	})
	return groups
}

// Workbook renders rows into a single-sheet workbook with the fixed header
func Workbook(rows []Row) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetRow(sheetName, "A1", &Header); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to address row %d: %w", i, err)
		}
		values := []interface{}{r.WKT, r.Name, r.Description}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	return f, nil
}

// Write renders rows as an .xlsx document into w
func Write(w io.Writer, rows []Row) error {
	f, err := Workbook(rows)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
