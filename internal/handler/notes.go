package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ardato/secure-notes/internal/middleware"
	"github.com/ardato/secure-notes/internal/model"
	"github.com/ardato/secure-notes/internal/repository"
)

// NotesHandler exposes the versioned note CRUD and listing endpoints.
// All operations are scoped to the authenticated principal attached by
// the authorize middleware.
type NotesHandler struct {
	Notes *repository.NoteRepo
}

func NewNotesHandler(n *repository.NoteRepo) *NotesHandler { return &NotesHandler{Notes: n} }

// noteReq is the create/update body. TTL, when present, is the number of
// minutes until the note expires.
type noteReq struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	TTL     *int64 `json:"ttl,omitempty"`
}

// Create inserts a new note at version 1 for the caller.
func (h *NotesHandler) Create(c echo.Context) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req noteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	var expiresAt *time.Time
	if req.TTL != nil {
		t := time.Now().UTC().Add(time.Duration(*req.TTL) * time.Minute)
		expiresAt = &t
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	n, err := h.Notes.Create(ctx, p.ID, req.Title, req.Content, expiresAt)
	if err != nil {
		return h.noteError(c, err)
	}
	return c.JSON(http.StatusOK, n)
}

// Update inserts the next version of a note and makes it active,
// restoring the note if it was deleted.
func (h *NotesHandler) Update(c echo.Context) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	noteID, err := pathID(c, "noteId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid note id"})
	}
	var req noteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	n, err := h.Notes.Update(ctx, p.ID, noteID, req.Title, req.Content)
	if err != nil {
		return h.noteError(c, err)
	}
	return c.JSON(http.StatusOK, n)
}

// Delete soft-deletes a note. Deleting an already-deleted note succeeds.
func (h *NotesHandler) Delete(c echo.Context) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	noteID, err := pathID(c, "noteId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid note id"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Notes.Delete(ctx, p.ID, noteID); err != nil {
		return h.noteError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Get returns the note at the caller's active version.
func (h *NotesHandler) Get(c echo.Context) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	noteID, err := pathID(c, "noteId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid note id"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	n, err := h.Notes.Get(ctx, p.ID, noteID)
	if errors.Is(err, repository.ErrNotFound) {
		return c.NoContent(http.StatusNotFound)
	}
	if err != nil {
		return h.noteError(c, err)
	}
	return c.JSON(http.StatusOK, n)
}

// GetVersion returns one historical version of a note.
func (h *NotesHandler) GetVersion(c echo.Context) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	noteID, err := pathID(c, "noteId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid note id"})
	}
	version, err := pathID(c, "version")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid version"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	n, err := h.Notes.GetVersion(ctx, p.ID, noteID, version)
	if errors.Is(err, repository.ErrNotFound) {
		return c.NoContent(http.StatusNotFound)
	}
	if err != nil {
		return h.noteError(c, err)
	}
	return c.JSON(http.StatusOK, n)
}

// ListActive returns the caller's non-deleted notes, newest first.
func (h *NotesHandler) ListActive(c echo.Context) error {
	return h.list(c, h.Notes.ListActive)
}

// ListDeleted returns the caller's soft-deleted notes.
func (h *NotesHandler) ListDeleted(c echo.Context) error {
	return h.list(c, h.Notes.ListDeleted)
}

// ListAll returns every note the caller owns, deleted or not.
func (h *NotesHandler) ListAll(c echo.Context) error {
	return h.list(c, h.Notes.ListAll)
}

// ListVersions returns the full version history of one note.
func (h *NotesHandler) ListVersions(c echo.Context) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	noteID, err := pathID(c, "noteId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid note id"})
	}
	cursor, limit, err := pageParams(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	notes, err := h.Notes.ListVersions(ctx, p.ID, noteID, cursor, limit)
	if err != nil {
		return h.noteError(c, err)
	}
	return c.JSON(http.StatusOK, notes)
}

func (h *NotesHandler) list(c echo.Context, fn func(ctx context.Context, userID uint64, cursor *time.Time, limit *int) ([]model.Note, error)) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	cursor, limit, err := pageParams(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	notes, err := fn(ctx, p.ID, cursor, limit)
	if err != nil {
		return h.noteError(c, err)
	}
	return c.JSON(http.StatusOK, notes)
}

// noteError maps repository failures onto the response taxonomy: invalid
// input and not-found are 400 with a reason (not-found deliberately is
// not 404, so note ids of other users are never confirmed to exist);
// conflicts and everything else are logged 500s with generic bodies.
func (h *NotesHandler) noteError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrInvalidNote):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": reasonOf(err, repository.ErrInvalidNote)})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Note not found"})
	case errors.Is(err, repository.ErrConflict):
		c.Logger().Errorf("note conflict: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "conflict"})
	default:
		c.Logger().Errorf("note operation failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// pageParams parses the cursor (RFC3339 timestamp) and limit query
// parameters; absence leaves them nil so the repository applies its
// defaults.
func pageParams(c echo.Context) (*time.Time, *int, error) {
	var cursor *time.Time
	if v := c.QueryParam("cursor"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, nil, errors.New("invalid cursor")
		}
		cursor = &t
	}
	var limit *int
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, nil, errors.New("invalid limit")
		}
		limit = &n
	}
	return cursor, limit, nil
}
