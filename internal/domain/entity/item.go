package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/album-ledger-api/internal/domain"
)

// UnknownItemLabel etiqueta usada cuando una transacción referencia un ítem que ya no se resuelve.
const UnknownItemLabel = "Unknown item"

const (
	minReleaseYear = 1000
	maxReleaseYear = 9999
)

// Item representa un álbum del catálogo.
// Stock es una caché materializada del ledger: solo la modifica el motor de movimientos.
type Item struct {
	ID          string
	Title       string
	Artist      string
	ReleaseYear *int
	Stock       int64
	LastUpdated time.Time
	CreatedAt   time.Time
}

// NewItem valida los datos y construye un ítem con stock 0.
func NewItem(title, artist string, releaseYear *int, now time.Time) (*Item, error) {
	title, artist = strings.TrimSpace(title), strings.TrimSpace(artist)
	if err := ValidateItemFields(title, artist, releaseYear); err != nil {
		return nil, err
	}
	return &Item{
		ID:          uuid.New().String(),
		Title:       title,
		Artist:      artist,
		ReleaseYear: releaseYear,
		Stock:       0,
		LastUpdated: now,
		CreatedAt:   now,
	}, nil
}

// ValidateItemFields aplica las reglas de metadatos (título y artista obligatorios, año de 4 dígitos).
func ValidateItemFields(title, artist string, releaseYear *int) error {
	verr := &domain.ValidationError{}
	if strings.TrimSpace(title) == "" {
		verr.Add("title", "es requerido")
	}
	if strings.TrimSpace(artist) == "" {
		verr.Add("artist", "es requerido")
	}
	if releaseYear != nil && (*releaseYear < minReleaseYear || *releaseYear > maxReleaseYear) {
		verr.Add("releaseYear", "debe ser un año de 4 dígitos")
	}
	return verr.OrNil()
}

// Label devuelve la etiqueta "título - artista" usada para filtrar el ledger.
func (i *Item) Label() string {
	return ItemLabel(i.Title, i.Artist)
}

// ItemLabel compone la etiqueta de un ítem.
func ItemLabel(title, artist string) string {
	return title + " - " + artist
}
