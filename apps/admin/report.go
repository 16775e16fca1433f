package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/trezcool/gradebook/core/curriculum"
	"github.com/trezcool/gradebook/core/importer"
)

func (cli *commandLine) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if cli.colored {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

func (cli *commandLine) statusColor(s importer.Status) *color.Color {
	switch s {
	case importer.StatusOK:
		return cli.paint(color.FgGreen)
	case importer.StatusRejected:
		return cli.paint(color.FgYellow)
	}
	return cli.paint(color.FgRed, color.Bold)
}

func (cli *commandLine) printOutcome(o importer.Outcome) {
	limit := cli.svc.Options().ErrorDisplayLimit
	fmt.Fprintln(cli.out, cli.statusColor(o.Status).Sprint(o.Marker()+" "+importer.FormatOutcome(o, limit)))
	if o.Structure != nil {
		fmt.Fprintf(cli.out, "structure: %s, data starts at row %d\n", o.Structure.Strategy, o.Structure.DataStart+1)
	}
}

func (cli *commandLine) printBatch(b importer.BatchOutcome) {
	header := cli.paint(color.Bold)
	fmt.Fprintln(cli.out, header.Sprintf("BULK IMPORT - YEAR %d - COURSE %d", b.Year, b.CourseID))

	table := tablewriter.NewWriter(cli.out)
	table.SetHeader([]string{"", "File", "Subject", "Processed", "Created", "Updated", "Skipped", "Errors"})
	table.SetAutoWrapText(false)
	for _, o := range b.Files {
		detail := strconv.Itoa(o.ErrorCount)
		if o.Failed() {
			detail = o.Failure
		}
		table.Append([]string{
			cli.statusColor(o.Status).Sprint(string(o.Status)),
			o.FileName,
			o.Subject,
			strconv.Itoa(o.Processed),
			strconv.Itoa(o.Created),
			strconv.Itoa(o.Updated),
			strconv.Itoa(o.Skipped),
			detail,
		})
	}
	table.SetFooter([]string{
		"", "", "TOTAL",
		strconv.Itoa(b.Processed),
		strconv.Itoa(b.Created),
		strconv.Itoa(b.Updated),
		strconv.Itoa(b.Skipped),
		strconv.Itoa(b.ErrorCount),
	})
	table.Render()

	fmt.Fprintf(cli.out, "files succeeded: %s, files with errors: %s\n",
		cli.paint(color.FgGreen).Sprint(b.FilesSucceeded),
		cli.paint(color.FgRed).Sprint(b.FilesFailed),
	)
}

func (cli *commandLine) printCatalog(year int, entries []curriculum.Entry) {
	table := tablewriter.NewWriter(cli.out)
	table.SetHeader([]string{"#", fmt.Sprintf("Subject (year %d)", year)})
	table.SetAutoWrapText(false)
	for _, e := range entries {
		table.Append([]string{strconv.Itoa(e.Ordinal), e.Subject})
	}
	table.Render()
}
