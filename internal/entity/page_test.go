package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/bookscan/constants"
)

func TestPageRecord_Validate(t *testing.T) {
	t.Parallel()

	neg := -1
	tests := []struct {
		name    string
		rec     PageRecord
		wantErr bool
	}{
		{name: "valid", rec: PageRecord{SourceFile: "a.jpg", Reference: "/x/a.jpg", LifeStageFlag: constants.LifeStageChildhood}},
		{name: "empty flag allowed", rec: PageRecord{SourceFile: "a.jpg", Reference: "/x/a.jpg"}},
		{name: "unknown flag", rec: PageRecord{SourceFile: "a.jpg", Reference: "/x/a.jpg", LifeStageFlag: "teen"}, wantErr: true},
		{name: "negative page", rec: PageRecord{SourceFile: "a.jpg", Reference: "/x/a.jpg", PageNumber: &neg}, wantErr: true},
		{name: "missing source", rec: PageRecord{Reference: "/x/a.jpg"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.rec.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
