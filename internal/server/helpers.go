package server

import (
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode"

	"gigboard/internal/middleware"
	"gigboard/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

const (
	requestTimeout       = 5 * time.Second
	defaultPageLimit     = 10
	maxPaginationLimit   = 100
	defaultAdminPageSize = 20
	// maxPage keeps (page-1)*limit far from int overflow.
	maxPage = 100000
)

// Pagination holds parsed page/limit query parameters.
type Pagination struct {
	Page   int
	Limit  int
	Offset int
}

// PageMeta is the pagination block attached to list responses.
type PageMeta struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	Total       int64 `json:"total"`
	Limit       int   `json:"limit"`
}

// parsePagination extracts page and limit query parameters with the given
// default limit. Out-of-range values are clamped to [1, maxPage] and
// [1, maxPaginationLimit].
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}

	return Pagination{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// Meta builds the response block for a result set of total rows.
func (p Pagination) Meta(total int64) PageMeta {
	return PageMeta{
		CurrentPage: p.Page,
		TotalPages:  int(math.Ceil(float64(total) / float64(p.Limit))),
		Total:       total,
		Limit:       p.Limit,
	}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, models.NewValidationError("Invalid "+humanizeParam(param)), false)
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// parseBody decodes the JSON request body into dst.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func (s *Server) parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		_ = models.RespondWithError(c, models.NewValidationError("Invalid request body"), false)
		return errResponseWritten
	}
	return nil
}

// fail writes err as an error response. Internal errors are logged with the
// full chain and only exposed to the caller in development.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	if models.HTTPStatus(err) >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return models.RespondWithError(c, err, s.config.IsDevelopment())
}

// errorHandler maps anything a handler returns to the standard error body.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) && fiberErr.Code < fiber.StatusInternalServerError {
		return c.Status(fiberErr.Code).JSON(models.ErrorResponse{Error: fiberErr.Message})
	}
	return s.fail(c, err)
}

// ok writes the success envelope.
func ok(c *fiber.Ctx, status int, data any, message string) error {
	body := fiber.Map{"data": data}
	if message != "" {
		body["message"] = message
	}
	return c.Status(status).JSON(body)
}

// paged writes the success envelope for a list result.
func paged(c *fiber.Ctx, data any, p Pagination, total int64) error {
	return c.JSON(fiber.Map{
		"data":       data,
		"pagination": p.Meta(total),
	})
}

// queryFloat parses an optional numeric query parameter. A malformed value
// is reported against the parameter's own name.
func queryFloat(c *fiber.Ctx, key string) (*float64, error) {
	if c.Query(key) == "" {
		return nil, nil
	}
	v := c.QueryFloat(key, math.NaN())
	if math.IsNaN(v) {
		return nil, models.NewFieldValidationError("Invalid query parameters", map[string]string{key: "must be a number"})
	}
	return &v, nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "expertId" -> "expert ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}
