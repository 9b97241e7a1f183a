package app

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/unkn0wn-root/restbench/internal/collection"
	"github.com/unkn0wn-root/restbench/internal/errdef"
	"github.com/unkn0wn-root/restbench/internal/history"
	"github.com/unkn0wn-root/restbench/internal/httpclient"
	"github.com/unkn0wn-root/restbench/internal/importer"
	"github.com/unkn0wn-root/restbench/internal/openapi"
	"github.com/unkn0wn-root/restbench/internal/session"
	"github.com/unkn0wn-root/restbench/internal/snippet"
	"github.com/unkn0wn-root/restbench/internal/store"
	"github.com/unkn0wn-root/restbench/internal/vars"
)

// maxResponseRecords bounds the per-request response history kept on the
// request itself.
const maxResponseRecords = 20

// Service is the surface a host UI or the CLI drives. It owns no state
// beyond the workspace store and the in-flight execution table.
type Service struct {
	ws        *store.Workspace
	assembler *httpclient.Assembler
	client    *httpclient.Client
	importer  *importer.Importer
	history   *history.Store
	runs      *session.Tracker
	logger    *slog.Logger
	now       func() time.Time

	// serializes read-modify-write cycles on workspace documents
	mu sync.Mutex
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithAssembler(a *httpclient.Assembler) Option {
	return func(s *Service) {
		if a != nil {
			s.assembler = a
		}
	}
}

func WithClient(c *httpclient.Client) Option {
	return func(s *Service) {
		if c != nil {
			s.client = c
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(ws *store.Workspace, opts ...Option) *Service {
	s := &Service{
		ws:     ws,
		runs:   session.NewTracker(),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.assembler == nil {
		s.assembler = httpclient.NewAssembler(httpclient.WithAssemblerLogger(s.logger))
	}
	if s.client == nil {
		s.client = httpclient.NewClient(nil)
		s.client.SetLogger(s.logger)
	}
	s.importer = importer.New(importer.WithLogger(s.logger))
	s.history = history.NewStore(ws, history.MaxEntries)
	return s
}

func (s *Service) Workspace() *store.Workspace { return s.ws }

func (s *Service) Runs() *session.Tracker { return s.runs }

func (s *Service) History() *history.Store { return s.history }

// FindRequest resolves ref as a request id, an exact name, a
// "Folder/Name" path or "METHOD url", in that order.
func (s *Service) FindRequest(ctx context.Context, ref string) (*collection.Request, error) {
	items, err := s.ws.Collections(ctx)
	if err != nil {
		return nil, err
	}
	return findRequest(items, ref)
}

func findRequest(items []collection.Item, ref string) (*collection.Request, error) {
	ref = strings.TrimSpace(ref)
	if req, ok := collection.FindRequest(items, ref); ok {
		return req, nil
	}
	located := locateRequests(items)
	matchers := []struct {
		kind  string
		match func(locatedRequest) bool
	}{
		{"name", func(l locatedRequest) bool { return l.req.Name == ref }},
		{"path", func(l locatedRequest) bool { return l.path != "" && l.fullPath() == ref }},
		{"method and url", methodURLMatcher(ref)},
	}
	for _, m := range matchers {
		if m.match == nil {
			continue
		}
		var found *collection.Request
		for _, l := range located {
			if !m.match(l) {
				continue
			}
			if found != nil {
				return nil, errdef.New(errdef.CodeNotFound, "request %s %q is ambiguous, use its id", m.kind, ref)
			}
			found = l.req
		}
		if found != nil {
			return found, nil
		}
	}
	return nil, errdef.New(errdef.CodeNotFound, "request %q not found", ref)
}

// methodURLMatcher returns nil when ref is not of the form "METHOD url".
func methodURLMatcher(ref string) func(locatedRequest) bool {
	method, rawURL, ok := strings.Cut(ref, " ")
	rawURL = strings.TrimSpace(rawURL)
	if !ok || method == "" || rawURL == "" {
		return nil
	}
	return func(l locatedRequest) bool {
		return strings.EqualFold(strings.TrimSpace(l.req.Method), method) &&
			strings.TrimSpace(l.req.URL) == rawURL
	}
}

// ActiveEnvironment is the environment flagged active, or the workspace
// default when none is.
func (s *Service) ActiveEnvironment(ctx context.Context) (collection.Environment, bool, error) {
	envs, err := s.ws.Environments(ctx)
	if err != nil {
		return collection.Environment{}, false, err
	}
	if env, ok := collection.ActiveEnvironment(envs); ok {
		return env, true, nil
	}
	id, err := s.ws.DefaultEnvID(ctx)
	if err != nil || id == "" {
		return collection.Environment{}, false, err
	}
	for _, env := range envs {
		if env.ID == id {
			return env, true, nil
		}
	}
	return collection.Environment{}, false, nil
}

// Execute assembles and sends the stored request. Transport failures are
// part of the returned Response; the error is only for problems reading
// the workspace.
func (s *Service) Execute(ctx context.Context, requestID string) (*httpclient.Response, error) {
	req, err := s.FindRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	settings, err := s.ws.Settings(ctx)
	if err != nil {
		return nil, err
	}
	env, _, err := s.ActiveEnvironment(ctx)
	if err != nil {
		return nil, err
	}

	desc, err := s.assembler.Assemble(req, env.Enabled(), &settings)
	if err != nil {
		return nil, err
	}

	runCtx, finish := s.runs.Begin(ctx, req.ID)
	started := s.now()
	resp := s.client.Execute(runCtx, desc)
	finish(resp.Status, resp.Err)

	log := s.logger.With("request", req.Name, "id", req.ID)
	log.Info("request executed", "status", resp.Status, "duration", resp.Duration, "size", resp.Size)

	entry := history.NewEntry(req, env.Name, summaryOf(resp), started)
	if err := s.history.Append(ctx, entry); err != nil {
		log.Warn("history not saved", "error", err)
	}
	if settings.General.AutoSave {
		if err := s.recordResponse(ctx, req.ID, resp, started); err != nil {
			log.Warn("response record not saved", "error", err)
		}
	}
	return resp, nil
}

func summaryOf(resp *httpclient.Response) history.Summary {
	return history.Summary{
		Status:     resp.Status,
		StatusText: resp.StatusText,
		DurationMS: resp.Duration.Milliseconds(),
		Size:       resp.Size,
		Error:      errdef.Message(resp.Err),
	}
}

func (s *Service) recordResponse(ctx context.Context, requestID string, resp *httpclient.Response, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.ws.Collections(ctx)
	if err != nil {
		return err
	}
	req, ok := collection.FindRequest(items, requestID)
	if !ok {
		// deleted while in flight
		return nil
	}
	rec := collection.ResponseRecord{
		Status:     resp.Status,
		StatusText: resp.StatusText,
		DurationMS: resp.Duration.Milliseconds(),
		Size:       resp.Size,
		Timestamp:  at,
	}
	records := append([]collection.ResponseRecord{rec}, req.ResponseHistory...)
	if len(records) > maxResponseRecords {
		records = records[:maxResponseRecords]
	}
	req.ResponseHistory = records
	return s.ws.SetCollections(ctx, items)
}

// SaveRequest inserts req at the root, or replaces the stored request
// with the same id wherever it lives.
func (s *Service) SaveRequest(ctx context.Context, req *collection.Request) error {
	if req == nil {
		return errdef.New(errdef.CodeStore, "request is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.ws.Collections(ctx)
	if err != nil {
		return err
	}
	updated, replaced := collection.Replace(items, collection.RequestItem(req))
	if !replaced {
		req.ParentID = ""
		updated = append(items, collection.RequestItem(req))
	}
	return s.ws.SetCollections(ctx, updated)
}

// ImportResult describes what an import added to the workspace.
type ImportResult struct {
	Format      importer.Format
	Collection  *collection.Folder
	Environment *collection.Environment
	Warnings    []string
}

// Import converts content and appends it as a new collection. name
// overrides the title the source declares. Declared variables become a
// new environment named after the collection.
func (s *Service) Import(ctx context.Context, content, name string) (*ImportResult, error) {
	doc, err := s.importer.ParseDocument(ctx, content)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(name)
	if title == "" {
		title = strings.TrimSpace(doc.Name)
	}
	if title == "" {
		title = defaultImportName(doc.Format)
	}
	root := collection.NewFolder(title, doc.Items...)
	collection.AssignParents(root.Children, root.ID)

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.ws.Collections(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.ws.SetCollections(ctx, append(items, collection.FolderItem(root))); err != nil {
		return nil, err
	}

	res := &ImportResult{Format: doc.Format, Collection: root, Warnings: doc.Warnings}
	if len(doc.Variables) > 0 {
		env := collection.NewEnvironment(title, doc.Variables)
		envs, err := s.ws.Environments(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.ws.SetEnvironments(ctx, append(envs, env)); err != nil {
			return nil, err
		}
		res.Environment = &env
	}
	s.logger.Info("collection imported",
		"name", title,
		"format", string(doc.Format),
		"requests", len(collection.Requests(root.Children)),
		"warnings", len(doc.Warnings),
	)
	return res, nil
}

func defaultImportName(f importer.Format) string {
	switch f {
	case importer.FormatPostman:
		return "Postman Import"
	case importer.FormatOpenAPI:
		return "OpenAPI Import"
	case importer.FormatCurl:
		return "cURL Import"
	default:
		return "Imported Collection"
	}
}

// Export renders one collection, or every collection when id is empty,
// as an OpenAPI 3.0.0 YAML document.
func (s *Service) Export(ctx context.Context, id string) ([]byte, error) {
	items, err := s.ws.Collections(ctx)
	if err != nil {
		return nil, err
	}
	opts := openapi.ExportOptions{Logger: s.logger}
	if id != "" {
		it, ok := collection.Find(items, id)
		if !ok {
			return nil, errdef.New(errdef.CodeNotFound, "collection %q not found", id)
		}
		items = []collection.Item{it}
		opts.Title = it.Name()
	}
	out, err := openapi.Export(items, opts)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeExport, err, "export")
	}
	return out, nil
}

// Snippet renders the stored request in lang using the workspace curl
// style. Placeholders are left unresolved.
func (s *Service) Snippet(ctx context.Context, requestID, lang string) (string, error) {
	req, err := s.FindRequest(ctx, requestID)
	if err != nil {
		return "", err
	}
	settings, err := s.ws.Settings(ctx)
	if err != nil {
		return "", err
	}
	return snippet.Generate(req, lang, &settings.Curl), nil
}

func (s *Service) Environments(ctx context.Context) ([]collection.Environment, error) {
	return s.ws.Environments(ctx)
}

// ActivateEnvironment marks id active and remembers it as the default.
// An empty id deactivates every environment.
func (s *Service) ActivateEnvironment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	envs, err := s.ws.Environments(ctx)
	if err != nil {
		return err
	}
	if id != "" && !hasEnvironment(envs, id) {
		return errdef.New(errdef.CodeNotFound, "environment %q not found", id)
	}
	if err := s.ws.SetEnvironments(ctx, collection.Activate(envs, id)); err != nil {
		return err
	}
	return s.ws.SetDefaultEnvID(ctx, id)
}

func hasEnvironment(envs []collection.Environment, id string) bool {
	for _, env := range envs {
		if env.ID == id {
			return true
		}
	}
	return false
}

// ImportDotEnv adds the variables of a dotenv file as a new environment.
func (s *Service) ImportDotEnv(ctx context.Context, path string) (collection.Environment, error) {
	parsed, err := vars.ReadDotEnv(path)
	if err != nil {
		return collection.Environment{}, err
	}
	env := collection.NewEnvironment(parsed.Name, parsed.Values)

	s.mu.Lock()
	defer s.mu.Unlock()
	envs, err := s.ws.Environments(ctx)
	if err != nil {
		return collection.Environment{}, err
	}
	if err := s.ws.SetEnvironments(ctx, append(envs, env)); err != nil {
		return collection.Environment{}, err
	}
	return env, nil
}
