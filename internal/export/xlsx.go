// Package export renders dashboards as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"appointment-portal/internal/portal"
)

const (
	individualSheet = "Individual"
	groupSheet      = "Group"
)

var (
	individualHeader = []any{"Booking", "Student", "Email", "Date", "Start", "End", "Location", "Status", "Notes"}
	groupHeader      = []any{"Booking", "Group", "First booked by", "Email", "Bookings", "Members", "Capacity", "Status", "Booked at"}
)

func studentCols(row portal.TABooking) (string, string) {
	if row.Student == nil {
		return "Unknown", ""
	}
	return row.Student.FullName(), row.Student.Email
}

// TADashboard writes one sheet per booking kind to w.
func TADashboard(w io.Writer, d *portal.TADashboard) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", individualSheet); err != nil {
		return errors.Wrap(err, "rename sheet")
	}
	if _, err := f.NewSheet(groupSheet); err != nil {
		return errors.Wrap(err, "new sheet")
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "style")
	}

	rows := [][]any{individualHeader}
	for _, r := range d.Individual {
		name, email := studentCols(r)
		var date, start, end, loc string
		if r.Slot != nil {
			date, start, end, loc = r.Slot.Date, r.Slot.Start, r.Slot.End, r.Slot.Location
		}
		rows = append(rows, []any{r.ID, name, email, date, start, end, loc, r.Status, r.Notes})
	}
	if err := writeRows(f, individualSheet, rows, bold); err != nil {
		return err
	}

	rows = [][]any{groupHeader}
	for _, r := range d.Group {
		name, email := studentCols(r)
		var group string
		var capacity int
		if r.Group != nil {
			group, capacity = r.Group.Name, r.Group.Capacity
		}
		rows = append(rows, []any{r.ID, group, name, email, r.TotalBookings, r.MemberCount, capacity, r.Status, r.BookedAt})
	}
	if err := writeRows(f, groupSheet, rows, bold); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "write workbook")
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "%s row %d", sheet, i+1)
		}
	}
	last, _ := excelize.ColumnNumberToName(len(rows[0]))
	if err := f.SetCellStyle(sheet, "A1", fmt.Sprintf("%s1", last), headerStyle); err != nil {
		return errors.Wrap(err, "header style")
	}
	return nil
}
