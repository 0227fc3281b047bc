// Package web serves the browsable card list.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ironsheep/card-scanner/internal/store"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200

	// maxPage keeps page*page_size within 32 bits.
	maxPage = math.MaxInt32 / maxPageSize
)

//go:embed templates static
var assets embed.FS

// CardLister is the part of the store the web UI reads.
type CardLister interface {
	ListCards(ctx context.Context, limit, offset int) ([]store.Card, error)
	CountCards(ctx context.Context) (int, error)
	GetCardByScryfallID(ctx context.Context, id string) (*store.Card, error)
}

type Handler struct {
	cards    CardLister
	imageDir string
	logger   *slog.Logger
	tmpl     *template.Template
	static   fs.FS
}

// New returns a handler listing cards and serving their art from imageDir.
func New(cards CardLister, imageDir string, logger *slog.Logger) (*Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tmpl, err := template.ParseFS(assets, "templates/*.html")
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(assets, "static")
	if err != nil {
		return nil, err
	}

	h := &Handler{
		cards:    cards,
		imageDir: imageDir,
		logger:   logger,
		tmpl:     tmpl,
		static:   static,
	}

	return h, nil
}

func (h *Handler) Attach(r chi.Router) {
	r.Get("/", h.handleCardList)
	r.Get("/healthz", h.handleHealth)
	r.Get("/api/cards", h.handleCardsJSON)
	r.Get("/cards/{scryfall_id}", h.handleCard)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(h.static))))
	r.Handle("/art/*", http.StripPrefix("/art/", http.FileServer(http.Dir(h.imageDir))))
}

// Page is one page of the card list.
type Page struct {
	Cards    []store.Card `json:"cards"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
	Total    int          `json:"total"`
}

func (p *Page) HasPrev() bool { return p.Page > 1 }
func (p *Page) HasNext() bool { return p.Page*p.PageSize < p.Total }
func (p *Page) PrevPage() int { return p.Page - 1 }
func (p *Page) NextPage() int { return p.Page + 1 }

func (h *Handler) loadPage(r *http.Request) (*Page, error) {
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	size := queryInt(r, "page_size", defaultPageSize)
	if size < 1 || size > maxPageSize {
		size = defaultPageSize
	}

	total, err := h.cards.CountCards(r.Context())
	if err != nil {
		return nil, err
	}
	cards, err := h.cards.ListCards(r.Context(), size, (page-1)*size)
	if err != nil {
		return nil, err
	}

	return &Page{
		Cards:    cards,
		Page:     page,
		PageSize: size,
		Total:    total,
	}, nil
}

func (h *Handler) handleCardList(w http.ResponseWriter, r *http.Request) {
	page, err := h.loadPage(r)
	if err != nil {
		h.logger.Error("failed to load cards", "error", err)
		writeError(w, http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, "card_list.html", page); err != nil {
		h.logger.Error("failed to render card list", "error", err)
	}
}

func (h *Handler) handleCardsJSON(w http.ResponseWriter, r *http.Request) {
	page, err := h.loadPage(r)
	if err != nil {
		h.logger.Error("failed to load cards", "error", err)
		writeError(w, http.StatusInternalServerError, nil)
		return
	}

	writeJson(w, page)
}

func (h *Handler) handleCard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "scryfall_id")

	card, err := h.cards.GetCardByScryfallID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, nil)
		return
	}
	if err != nil {
		h.logger.Error("failed to load card", "scryfall_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, "card.html", card); err != nil {
		h.logger.Error("failed to render card", "error", err)
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJson(w, map[string]string{"status": "ok"})
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func writeJson(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	w.WriteHeader(code)

	text := http.StatusText(code)

	if err != nil {
		text = err.Error()
	}

	w.Write([]byte(text))
}
