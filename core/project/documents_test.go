package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamamind47/sfa-efilling-sub001/core"
)

func uploads(n int) []core.Upload {
	out := make([]core.Upload, n)
	for i := range out {
		out[i] = core.Upload{Filename: "f", ContentType: "image/png"}
	}
	return out
}

func TestCheckDocuments(t *testing.T) {
	tests := []struct {
		name       string
		existing   int
		photos     int
		certs      int
		wantFields []string
	}{
		{name: "first upload ok", photos: 5, certs: 1},
		{name: "first upload missing both", photos: 4, wantFields: []string{"photos", "certificates"}},
		{name: "first upload missing cert", photos: 6, wantFields: []string{"certificates"}},
		{name: "top up single photo", existing: 6, photos: 1},
		{name: "top up single cert", existing: 6, certs: 1},
		{name: "empty top up", existing: 6, wantFields: []string{"files"}},
		{name: "too many files", existing: 28, photos: 3, wantFields: []string{"files"}},
		{name: "first upload over the cap", photos: MaxFiles, certs: 1, wantFields: []string{"files"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckDocuments(make([]File, tt.existing), uploads(tt.photos), uploads(tt.certs))
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			require.True(t, core.IsValidation(err), "CheckDocuments() error = %v", err)
			verr := err.(*core.ValidationError)
			var got []string
			for _, f := range verr.Fields {
				got = append(got, f.Field)
			}
			assert.Equal(t, tt.wantFields, got)
		})
	}
}
