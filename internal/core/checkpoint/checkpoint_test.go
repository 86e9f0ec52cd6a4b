package checkpoint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheckpoint_Validate(t *testing.T) {
	valid := func() *Checkpoint {
		return &Checkpoint{ID: "cp", GraphID: "g", ThreadID: "t", State: map[string]interface{}{}}
	}

	tests := []struct {
		name    string
		mutate  func(*Checkpoint)
		wantErr error
	}{
		{name: "valid", mutate: func(*Checkpoint) {}},
		{name: "missing id", mutate: func(c *Checkpoint) { c.ID = "" }, wantErr: ErrInvalidCheckpointID},
		{name: "missing graph", mutate: func(c *Checkpoint) { c.GraphID = "" }, wantErr: ErrInvalidGraphID},
		{name: "missing thread", mutate: func(c *Checkpoint) { c.ThreadID = "" }, wantErr: ErrInvalidThreadID},
		{name: "nil state", mutate: func(c *Checkpoint) { c.State = nil }, wantErr: ErrNilState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp := valid()
			tt.mutate(cp)
			err := cp.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFilter_ValidateAndMatch(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)

	assert.ErrorIs(t, (&Filter{Limit: -1}).Validate(), ErrInvalidLimit)
	assert.ErrorIs(t, (&Filter{Offset: -1}).Validate(), ErrInvalidOffset)
	assert.ErrorIs(t, (&Filter{Since: &now, Before: &earlier}).Validate(), ErrInvalidTimeRange)

	cp := &Checkpoint{GraphID: "g", ThreadID: "t1", Timestamp: now}
	assert.True(t, (&Filter{ThreadID: "t1"}).Matches(cp))
	assert.False(t, (&Filter{ThreadID: "t2"}).Matches(cp))
	assert.False(t, (&Filter{GraphID: "other"}).Matches(cp))
	assert.True(t, (&Filter{Since: &earlier}).Matches(cp))
	assert.False(t, (&Filter{Before: &earlier}).Matches(cp))
}

func TestLatest(t *testing.T) {
	now := time.Now()
	a := &Checkpoint{ID: "a", Metadata: Metadata{Step: 1}, Timestamp: now}
	b := &Checkpoint{ID: "b", Metadata: Metadata{Step: 3}, Timestamp: now.Add(-time.Minute)}
	c := &Checkpoint{ID: "c", Metadata: Metadata{Step: 3}, Timestamp: now}

	assert.Nil(t, Latest(nil))
	assert.Equal(t, "c", Latest([]*Checkpoint{a, b, c}).ID)
	assert.Equal(t, "b", Latest([]*Checkpoint{b, a}).ID)
}
