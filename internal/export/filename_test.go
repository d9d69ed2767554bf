package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilenameFromDisposition(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{name: "quoted", header: `attachment; filename="report_2024.xlsx"`, want: "report_2024.xlsx", ok: true},
		{name: "unquoted", header: "attachment; filename=report.xlsx", want: "report.xlsx", ok: true},
		{name: "unquoted with spaces", header: "attachment; filename=pv report.xlsx", want: "pv report.xlsx", ok: true},
		{name: "extended", header: "attachment; filename*=UTF-8''pr%C3%A9vision.xlsx", want: "prévision.xlsx", ok: true},
		{name: "directory stripped", header: `attachment; filename="../../etc/passwd"`, want: "passwd", ok: true},
		{name: "windows path stripped", header: `attachment; filename="C:\\tmp\\out.xlsx"`, want: "out.xlsx", ok: true},
		{name: "case insensitive", header: `Attachment; FILENAME="a.xlsx"`, want: "a.xlsx", ok: true},
		{name: "empty header", header: "", ok: false},
		{name: "no filename", header: "attachment", ok: false},
		{name: "empty filename", header: `attachment; filename=""`, ok: false},
		{name: "dot dot", header: `attachment; filename=".."`, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FilenameFromDisposition(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveFilename(t *testing.T) {
	assert.Equal(t, "report_2024.xlsx", ResolveFilename(`attachment; filename="report_2024.xlsx"`, DefaultFilename))
	assert.Equal(t, DefaultFilename, ResolveFilename("", DefaultFilename))
	assert.Equal(t, "custom.xlsx", ResolveFilename("inline", "custom.xlsx"))
}
