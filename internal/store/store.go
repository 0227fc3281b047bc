// Package store keeps the card catalogue in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ironsheep/card-scanner/internal/scryfall"
)

// commitEvery is the number of cards inserted per transaction.
const commitEvery = 100

// ErrNotFound is returned when no card matches a lookup.
var ErrNotFound = errors.New("card not found")

// Card is a row of the card table.
type Card struct {
	ID          int64  `json:"card_id"`
	Name        string `json:"name"`
	ManaCost    string `json:"mana_cost"`
	Rarity      string `json:"rarity,omitempty"`
	Power       string `json:"power,omitempty"`
	Toughness   string `json:"toughness,omitempty"`
	Type        string `json:"type,omitempty"`
	SetCode     string `json:"set_code,omitempty"`
	ScryfallID  string `json:"scryfall_id"`
	ScryfallURI string `json:"scryfall_uri,omitempty"`

	// CardArtURI is the image file name relative to the image directory, or
	// empty when no image had been downloaded at insert time.
	CardArtURI string `json:"card_art_uri,omitempty"`
}

// Store wraps the SQLite connection.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at dsn and migrates it. dsn
// is a file path; a leading "sqlite:///" is accepted for compatibility with
// SQLAlchemy-style URLs.
func Open(dsn string) (*Store, error) {
	path := strings.TrimPrefix(dsn, "sqlite:///")
	if path == "" {
		return nil, errors.New("empty database path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite3", path+sep+"_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS card (
		card_id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		mana_cost TEXT NOT NULL DEFAULT '',
		rarity TEXT,
		power TEXT,
		toughness TEXT,
		type TEXT,
		set_code TEXT,
		scryfall_id TEXT NOT NULL UNIQUE,
		scryfall_uri TEXT,
		card_art_uri TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_card_name ON card(name);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

const insertCard = `
	INSERT INTO card (name, mana_cost, rarity, power, toughness, type, set_code,
		scryfall_id, scryfall_uri, card_art_uri)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(scryfall_id) DO NOTHING
`

// PopulateCards inserts cards, ignoring ones already present by Scryfall id,
// and returns how many rows were added. Work is committed every 100 cards,
// so a failure keeps the batches before it.
//
// card_art_uri is set only when the card's image exists in imageDir.
func (s *Store) PopulateCards(ctx context.Context, cards []scryfall.Card, imageDir string) (int, error) {
	inserted := 0
	for start := 0; start < len(cards); start += commitEvery {
		end := start + commitEvery
		if end > len(cards) {
			end = len(cards)
		}
		n, err := s.insertBatch(ctx, cards[start:end], imageDir)
		inserted += n
		if err != nil {
			return inserted, err
		}
	}
	return inserted, nil
}

func (s *Store) insertBatch(ctx context.Context, cards []scryfall.Card, imageDir string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertCard)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := range cards {
		c := &cards[i]
		res, err := stmt.ExecContext(ctx,
			c.Name,
			manaCost(c),
			nullString(string(c.Rarity)),
			nullString(c.Power),
			nullString(c.Toughness),
			nullString(typeLine(c)),
			nullString(c.Set),
			c.ID,
			nullString(scryfallURI(c)),
			nullString(cardArt(c.ID, imageDir)),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert card %s: %w", c.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return inserted, nil
}

// ListCards returns a page of cards ordered by name.
func (s *Store) ListCards(ctx context.Context, limit, offset int) ([]Card, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT card_id, name, mana_cost, rarity, power, toughness, type, set_code,
			scryfall_id, scryfall_uri, card_art_uri
		FROM card
		ORDER BY name, card_id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	var cards []Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, *c)
	}
	return cards, rows.Err()
}

// CountCards returns the number of stored cards.
func (s *Store) CountCards(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM card`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return n, nil
}

// GetCardByScryfallID looks a card up by its Scryfall id.
func (s *Store) GetCardByScryfallID(ctx context.Context, id string) (*Card, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT card_id, name, mana_cost, rarity, power, toughness, type, set_code,
			scryfall_id, scryfall_uri, card_art_uri
		FROM card
		WHERE scryfall_id = ?
	`, id)

	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCard(row scanner) (*Card, error) {
	var c Card
	var rarity, power, toughness, typ, set, uri, art sql.NullString
	err := row.Scan(&c.ID, &c.Name, &c.ManaCost, &rarity, &power, &toughness, &typ, &set,
		&c.ScryfallID, &uri, &art)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan card: %w", err)
	}
	c.Rarity = rarity.String
	c.Power = power.String
	c.Toughness = toughness.String
	c.Type = typ.String
	c.SetCode = set.String
	c.ScryfallURI = uri.String
	c.CardArtURI = art.String
	return &c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// manaCost falls back to the front face for multi-faced cards.
func manaCost(c *scryfall.Card) string {
	if c.ManaCost == "" && len(c.CardFaces) > 0 {
		return c.CardFaces[0].ManaCost
	}
	return c.ManaCost
}

func typeLine(c *scryfall.Card) string {
	if c.TypeLine == "" && len(c.CardFaces) > 0 {
		return c.CardFaces[0].TypeLine
	}
	return c.TypeLine
}

func scryfallURI(c *scryfall.Card) string {
	if c.ScryfallURI != "" {
		return c.ScryfallURI
	}
	return c.URI
}

// cardArt returns the name of the card's downloaded image, if any.
func cardArt(id, imageDir string) string {
	if imageDir == "" {
		return ""
	}
	for _, t := range []scryfall.ImageType{scryfall.ImageSmall, scryfall.ImagePNG} {
		name := scryfall.ImageFileName(id, t)
		if _, err := os.Stat(filepath.Join(imageDir, name)); err == nil {
			return name
		}
	}
	return ""
}
