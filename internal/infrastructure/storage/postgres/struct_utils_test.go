package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"authcore/internal/core/id"
	"authcore/internal/domain/access"
)

type testTimestamps struct {
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type testRow struct {
	testTimestamps
	ID     id.ID  `db:"id"`
	Name   string `db:"name"`
	Ignore string `db:"-"`
	NoTag  string
}

func TestExtractDBColumns(t *testing.T) {
	cols := ExtractDBColumns[testRow]()
	assert.Equal(t, []string{"created_at", "updated_at", "id", "name"}, cols)
}

func TestExtractDBColumns_Principal(t *testing.T) {
	cols := ExtractDBColumns[access.Principal]()
	assert.Contains(t, cols, "id")
	assert.Contains(t, cols, "kind")
	assert.Contains(t, cols, "admin")
	assert.Contains(t, cols, "locked")
}

func TestStructToMap(t *testing.T) {
	rowID := id.New()
	now := time.Now()
	row := testRow{
		testTimestamps: testTimestamps{CreatedAt: now, UpdatedAt: now},
		ID:             rowID,
		Name:           "reader",
		Ignore:         "skip",
		NoTag:          "skip",
	}

	m := StructToMap(row)
	assert.Equal(t, rowID, m["id"])
	assert.Equal(t, "reader", m["name"])
	assert.Equal(t, now, m["created_at"])
	assert.NotContains(t, m, "-")
	assert.Len(t, m, 4)

	// Pointer input works the same.
	m2 := StructToMap(&row)
	assert.Equal(t, m, m2)
}
