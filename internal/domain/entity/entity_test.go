package entity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/album-ledger-api/internal/domain"
	"github.com/jhoicas/album-ledger-api/internal/domain/entity"
)

func intPtr(v int) *int { return &v }

func TestNewItem(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	item, err := entity.NewItem("  Kind of Blue ", " Miles Davis", intPtr(1959), now)
	require.NoError(t, err)

	assert.NotEmpty(t, item.ID)
	assert.Equal(t, "Kind of Blue", item.Title)
	assert.Equal(t, "Miles Davis", item.Artist)
	assert.Zero(t, item.Stock)
	assert.Equal(t, now, item.CreatedAt)
	assert.Equal(t, "Kind of Blue - Miles Davis", item.Label())
}

func TestNewItem_Validation(t *testing.T) {
	cases := []struct {
		name   string
		title  string
		artist string
		year   *int
		field  string
	}{
		{"sin título", " ", "x", nil, "title"},
		{"sin artista", "x", "", nil, "artist"},
		{"año de 3 dígitos", "x", "y", intPtr(999), "releaseYear"},
		{"año de 5 dígitos", "x", "y", intPtr(10000), "releaseYear"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := entity.NewItem(tc.title, tc.artist, tc.year, time.Now())
			require.ErrorIs(t, err, domain.ErrInvalidInput)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tc.field)
		})
	}
}

func TestParseMovementType(t *testing.T) {
	typ, err := entity.ParseMovementType(" OUT ")
	require.NoError(t, err)
	assert.Equal(t, entity.MovementTypeOut, typ)

	_, err = entity.ParseMovementType("transfer")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewTransaction(t *testing.T) {
	now := time.Now().UTC()
	tx, err := entity.NewTransaction("item-1", entity.MovementTypeOut, 3, " venta ", "user-1", now)
	require.NoError(t, err)
	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, "venta", tx.Notes)
	assert.EqualValues(t, -3, tx.Delta())

	_, err = entity.NewTransaction("", entity.MovementType("x"), 0, "", "", now)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 3)
}
