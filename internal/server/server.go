// Package server carries the HTTP layer: routing, authentication,
// template rendering and the handlers for browsing, editing, exporting
// and reporting on the operational tables.
package server

import (
	"bufio"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"golang.org/x/crypto/bcrypt"

	"github.com/stitchgrid/opsboard/internal/config"
	"github.com/stitchgrid/opsboard/internal/query"
	"github.com/stitchgrid/opsboard/internal/records"
	"github.com/stitchgrid/opsboard/internal/rowstore"
)

// Server is the HTTP server instance.
type Server struct {
	app      *fiber.App
	config   *config.Config
	store    *rowstore.Store
	builder  *query.Builder
	orders   *records.SalesOrders
	log      *slog.Logger
	tmpl     *template.Template
	staticFS fs.FS
}

// New creates a Server. templatesFS and staticFS are embedded
// filesystems rooted at the project root (containing "templates/" and
// "static/" subdirectories).
func New(cfg *config.Config, store *rowstore.Store, logger *slog.Logger, templatesFS, staticFS fs.FS) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:               "Opsboard",
		DisableStartupMessage: cfg.Env == "prod",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			logger.Error("request failed",
				slog.String("path", c.Path()),
				slog.Int("status", code),
				slog.Any("err", err))
			return c.Status(code).SendString("Something went wrong")
		},
	})

	tmplFS, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded templates: %w", err)
	}

	funcMap := template.FuncMap{
		"add":          func(a, b int) int { return a + b },
		"sub":          func(a, b int) int { return a - b },
		"formatNumber": formatNumber,
		"formatPct":    formatPct,
		"pctOf":        pctOf,
		"pageWindow":   pageWindow,
		"cell":         func(row rowstore.Row, col string) string { return row[col].Export() },
		"title":        titleCase,
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(tmplFS, "*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded static files: %w", err)
	}

	s := &Server{
		app:      app,
		config:   cfg,
		store:    store,
		builder:  query.New(store, logger),
		orders:   records.NewSalesOrders(store),
		log:      logger,
		tmpl:     tmpl,
		staticFS: staticSub,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// setupMiddleware configures static file serving and authentication.
func (s *Server) setupMiddleware() {
	s.app.Use("/static", filesystem.New(filesystem.Config{
		Root: http.FS(s.staticFS),
	}))

	if authMiddleware := s.createAuthMiddleware(); authMiddleware != nil {
		s.app.Use(authMiddleware)
	}
}

// createAuthMiddleware builds basic auth from an htpasswd file when
// configured, falling back to environment credentials. Returns nil when
// neither is configured.
func (s *Server) createAuthMiddleware() fiber.Handler {
	if s.config.HtpasswdFile != "" {
		users, err := parseHtpasswd(s.config.HtpasswdFile, s.log)
		if err != nil {
			s.log.Warn("failed to parse htpasswd file", slog.Any("err", err))
			return nil
		}

		return basicauth.New(basicauth.Config{
			Authorizer: func(user, pass string) bool {
				hashed, exists := users[user]
				if !exists {
					return false
				}
				return verifyPassword(pass, hashed)
			},
		})
	}

	if s.config.AuthUser != "" && s.config.AuthPass != "" {
		return basicauth.New(basicauth.Config{
			Users: map[string]string{
				s.config.AuthUser: s.config.AuthPass,
			},
		})
	}

	return nil
}

// parseHtpasswd reads an htpasswd file into a username to bcrypt hash
// map. Only bcrypt entries are accepted.
func parseHtpasswd(filepath string, logger *slog.Logger) (map[string]string, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to open htpasswd file: %w", err)
	}
	defer file.Close()

	users := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			logger.Warn("invalid htpasswd entry, missing colon", slog.Int("line", lineNum))
			continue
		}

		username, hash := parts[0], parts[1]
		if !strings.HasPrefix(hash, "$2") {
			logger.Warn("unsupported htpasswd hash, only bcrypt is accepted",
				slog.String("user", username), slog.Int("line", lineNum))
			continue
		}

		users[username] = hash
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading htpasswd file: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("no valid users found in htpasswd file")
	}
	return users, nil
}

// verifyPassword checks a plaintext password against a bcrypt hash.
func verifyPassword(plaintext, hashed string) bool {
	if !strings.HasPrefix(hashed, "$2") {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.app.Get("/", s.handleDashboard)

	// Table browsing
	s.app.Get("/production", s.handleBrowse("production"))
	s.app.Get("/cutting", s.handleBrowse("cutting"))
	s.app.Get("/shipments", s.handleBrowse("shipments"))

	// Record mutation
	s.app.Post("/:table/add", s.handleAdd)
	s.app.Post("/:table/edit/:id", s.handleEdit)
	s.app.Post("/:table/bulk_delete", s.handleBulkDelete)

	// Exports
	s.app.Get("/:table/export", s.handleExportCSV)
	s.app.Get("/:table/export.xlsx", s.handleExportXLSX)

	// Sales orders
	s.app.Get("/sales_orders", s.handleSalesOrderList)
	s.app.Get("/sales_orders/new", s.handleSalesOrderNew)
	s.app.Post("/sales_orders/new", s.handleSalesOrderCreate)
	s.app.Get("/sales_orders/view/:po_no", s.handleSalesOrderView)
	s.app.Get("/sales_orders/edit/:po_no", s.handleSalesOrderEditForm)
	s.app.Post("/sales_orders/edit/:po_no", s.handleSalesOrderUpdate)
	s.app.Post("/sales_orders/delete/:po_no", s.handleSalesOrderDelete)

	// Dispatch reports
	s.app.Get("/reports/dispatch/monthly", s.handleDispatchMonthly)
	s.app.Get("/reports/dispatch/summary", s.handleDispatchSummary)
	s.app.Get("/api/dispatch/monthly", s.handleAPIDispatchMonthly)
	s.app.Get("/api/dispatch/monthly/compare", s.handleAPIDispatchCompare)
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.log.Info("starting server", slog.String("listen", s.config.Listen))
	return s.app.Listen(s.config.Listen)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.log.Info("shutting down server")
	return s.app.Shutdown()
}

// render executes a template into a buffer before sending, so a
// half-rendered page never reaches the client.
func (s *Server) render(c *fiber.Ctx, name string, data any) error {
	var buf strings.Builder
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		s.log.Error("failed to render template", slog.String("template", name), slog.Any("err", err))
		return c.Status(fiber.StatusInternalServerError).SendString("Error rendering page")
	}
	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.SendString(buf.String())
}

// Template helper functions

// formatNumber renders an integer with comma separators.
func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}
	var result []byte
	for i, digit := range []byte(str) {
		if i > 0 && (len(str)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, digit)
	}
	return string(result)
}

// formatPct renders a percentage with one decimal place.
func formatPct(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

// pctOf scales a value against a maximum for bar chart widths. Bars
// for non-zero values are at least 1% wide so they stay visible.
func pctOf(value, max float64) int {
	if max <= 0 || value <= 0 {
		return 0
	}
	result := int(value / max * 100)
	if result < 1 {
		return 1
	}
	return result
}

// pageWindow returns the page numbers to show in the pagination
// control: up to five pages centered on the current one.
func pageWindow(current, total int) []int {
	if total < 1 {
		return nil
	}
	from := current - 2
	if from < 1 {
		from = 1
	}
	to := from + 4
	if to > total {
		to = total
		if from = to - 4; from < 1 {
			from = 1
		}
	}
	pages := make([]int, 0, to-from+1)
	for p := from; p <= to; p++ {
		pages = append(pages, p)
	}
	return pages
}

// titleCase renders a column name like "produced_qty" as "Produced Qty".
func titleCase(col string) string {
	words := strings.Split(col, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
