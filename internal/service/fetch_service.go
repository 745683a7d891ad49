package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"newsharvest/internal/domain"
	errpkg "newsharvest/internal/errors"
	"newsharvest/internal/llm"
	"newsharvest/internal/markdown"
	"newsharvest/internal/metrics"
	"newsharvest/internal/progress"
)

// ContentFetcher crawls one source URL into raw text.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// SourceStore resolves configured sources. Ownership of the source ids is
// validated upstream by the API layer.
type SourceStore interface {
	GetSource(ctx context.Context, id string) (*domain.Source, error)
}

// NewsStore is the persistence collaborator for deduplication and saving.
type NewsStore interface {
	GetExistingURLs(ctx context.Context, userID string) (map[string]struct{}, error)
	PersistBatch(ctx context.Context, items []domain.NewsItem) (saved, skipped int, err error)
}

// CredentialStore looks up a user's LLM credential. A nil credential means
// none is configured.
type CredentialStore interface {
	GetCredential(ctx context.Context, userID string) (*domain.Credential, error)
}

// Progress percentages reported at each stage entry.
const (
	progressPreparing       = 5
	progressCrawling        = 15
	progressExtractingLinks = 30
	progressAnalyzing       = 45
	progressSaving          = 85
	progressDone            = 100
)

// FetchService schedules batch fetches and runs the per-source pipeline:
// prepare, crawl, filter/chunk, analyze via the session pool, deduplicate,
// persist, report completion.
type FetchService struct {
	sources    SourceStore
	news       NewsStore
	creds      CredentialStore
	fetcher    ContentFetcher
	pool       *llm.Pool
	registry   progress.Registry
	states     *progress.TaskStates
	reporter      progress.Reporter
	chunkCount    int
	maxConcurrent int
	logger        *slog.Logger
	wg            sync.WaitGroup
}

// NewFetchService wires the orchestrator with its collaborators.
func NewFetchService(
	sources SourceStore,
	news NewsStore,
	creds CredentialStore,
	fetcher ContentFetcher,
	pool *llm.Pool,
	registry progress.Registry,
	states *progress.TaskStates,
	reporter progress.Reporter,
	chunkCount int,
	maxConcurrent int,
	logger *slog.Logger,
) *FetchService {
	return &FetchService{
		sources:       sources,
		news:          news,
		creds:         creds,
		fetcher:       fetcher,
		pool:          pool,
		registry:      registry,
		states:        states,
		reporter:      reporter,
		chunkCount:    chunkCount,
		maxConcurrent: maxConcurrent,
		logger:        logger,
	}
}

// ScheduleBatchFetch registers a task group for the given sources and starts
// one fetch task per source. It returns the task-group id immediately; the
// outcome is only knowable from the progress stream.
func (s *FetchService) ScheduleBatchFetch(ctx context.Context, sourceIDs []string, userID string) (string, error) {
	groupID := uuid.New().String()

	tasks := make([]*domain.FetchTask, 0, len(sourceIDs))
	srcs := make([]*domain.Source, 0, len(sourceIDs))
	taskIDs := make([]string, 0, len(sourceIDs))

	for _, sourceID := range sourceIDs {
		src, err := s.sources.GetSource(ctx, sourceID)
		if err != nil {
			return "", fmt.Errorf("failed to resolve source %s: %w", sourceID, err)
		}
		// A source owned by someone else is reported as missing.
		if src.UserID != userID {
			return "", fmt.Errorf("source %s: %w", sourceID, errpkg.ErrSourceNotFound)
		}
		task := &domain.FetchTask{
			ID:          uuid.New().String(),
			TaskGroupID: groupID,
			UserID:      userID,
			SourceID:    src.ID,
			SourceName:  src.Name,
			SourceURL:   src.URL,
			Step:        domain.StepPreparing,
		}
		tasks = append(tasks, task)
		srcs = append(srcs, src)
		taskIDs = append(taskIDs, task.ID)
	}

	group := &domain.TaskGroup{
		ID:        groupID,
		UserID:    userID,
		TaskIDs:   taskIDs,
		CreatedAt: time.Now(),
	}
	if err := s.registry.Register(ctx, group); err != nil {
		return "", fmt.Errorf("failed to register task group: %w", err)
	}

	for _, task := range tasks {
		s.states.Put(*task)
	}

	metrics.BatchesScheduled.Inc()
	s.logger.Info("batch fetch scheduled",
		"task_group_id", groupID,
		"user_id", userID,
		"sources_count", len(tasks),
	)

	// Tasks are owned by the worker process, not by the request or any
	// observer connection, so they run under a fresh context. The batch-level
	// terminal event is published once every member task has reached its own
	// terminal state.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		var batch errgroup.Group
		if s.maxConcurrent > 0 {
			batch.SetLimit(s.maxConcurrent)
		}
		for i := range tasks {
			task, src := tasks[i], srcs[i]
			batch.Go(func() error {
				s.runTask(context.Background(), task, src)
				return nil
			})
		}
		_ = batch.Wait()

		s.reporter.Report(context.Background(), domain.ProgressEvent{
			Event:       domain.EventOverallCompleted,
			TaskGroupID: groupID,
			Step:        domain.StepComplete,
			Progress:    progressDone,
			Message:     "all sources processed",
		})
		s.logger.Info("batch fetch completed", "task_group_id", groupID)
	}()

	return groupID, nil
}

// runTask drives one source through the pipeline. Every state transition
// emits exactly one progress event before the state's work begins, and any
// failure is converted into exactly one terminal Error event.
func (s *FetchService) runTask(ctx context.Context, task *domain.FetchTask, src *domain.Source) {
	report := func(step domain.Step, pct int, msg string, saved *int) {
		task.Step = step
		task.Progress = pct
		task.Message = msg
		s.reporter.Report(ctx, domain.ProgressEvent{
			Event:       domain.EventProgress,
			TaskGroupID: task.TaskGroupID,
			SourceID:    task.SourceID,
			Step:        step,
			Progress:    pct,
			Message:     msg,
			ItemsSaved:  saved,
		})
	}
	fail := func(msg string) {
		report(domain.StepError, progressDone, msg, nil)
		metrics.TasksFailed.Inc()
		s.logger.Error("fetch task failed",
			"task_group_id", task.TaskGroupID,
			"source_id", task.SourceID,
			"message", msg,
		)
	}

	defer func() {
		if r := recover(); r != nil {
			fail(fmt.Sprintf("internal error: %v", r))
		}
	}()

	// Preparing: the task needs a usable LLM credential for its owner and a
	// snapshot of already-known URLs. Neither is retried here.
	report(domain.StepPreparing, progressPreparing, "preparing fetch for "+src.Name, nil)

	cred, err := s.creds.GetCredential(ctx, task.UserID)
	if err != nil {
		fail(fmt.Sprintf("failed to load LLM credential: %v", err))
		return
	}
	if cred == nil || cred.APIKey == "" {
		fail("no valid LLM credential configured")
		return
	}

	excluded, err := s.news.GetExistingURLs(ctx, task.UserID)
	if err != nil {
		fail(fmt.Sprintf("failed to load existing urls: %v", err))
		return
	}

	// Crawling: a transport failure ends the task; the caller may resubmit
	// the source as a new task.
	report(domain.StepCrawling, progressCrawling, "crawling "+src.URL, nil)

	raw, err := s.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		fail(err.Error())
		return
	}

	// ExtractingLinks: deterministic noise removal before any LLM call.
	report(domain.StepExtractingLinks, progressExtractingLinks, "filtering and chunking content", nil)

	cleaned := markdown.Filter(raw)
	cleaned = markdown.StripImagesAndDividers(cleaned)
	chunks := markdown.SplitByLinks(cleaned, s.chunkCount)
	if len(chunks) == 0 {
		report(domain.StepSkipped, progressDone, "no article links found in crawled content", nil)
		metrics.TasksSkipped.Inc()
		return
	}

	// Analyzing: one pool session per chunk; the scoped acquisition releases
	// the slot on every exit path.
	report(domain.StepAnalyzing, progressAnalyzing,
		fmt.Sprintf("analyzing %d content chunks", len(chunks)), nil)

	var candidates []domain.Candidate
	for i, chunk := range chunks {
		err := s.pool.WithSession(ctx, func(sess llm.Session) error {
			found, err := sess.ExtractArticles(ctx, chunk)
			if err != nil {
				return err
			}
			candidates = append(candidates, found...)
			return nil
		})
		if err != nil {
			fail(fmt.Sprintf("analysis of chunk %d/%d failed: %v", i+1, len(chunks), err))
			return
		}
	}

	// Saving: drop candidates whose URL is already known, attach metadata,
	// persist the rest in one batch.
	report(domain.StepSaving, progressSaving,
		fmt.Sprintf("deduplicating %d candidates", len(candidates)), nil)

	now := time.Now().UTC()
	seen := make(map[string]struct{}, len(candidates))
	items := make([]domain.NewsItem, 0, len(candidates))
	skipped := 0
	for _, c := range candidates {
		if _, dup := excluded[c.URL]; dup {
			skipped++
			continue
		}
		if _, dup := seen[c.URL]; dup {
			skipped++
			continue
		}
		seen[c.URL] = struct{}{}
		items = append(items, domain.NewsItem{
			Title:       c.Title,
			URL:         c.URL,
			Description: c.Description,
			SourceID:    src.ID,
			SourceName:  src.Name,
			Category:    src.Category,
			UserID:      task.UserID,
			CreatedAt:   now,
		})
	}

	saved := 0
	if len(items) > 0 {
		var persistSkipped int
		saved, persistSkipped, err = s.news.PersistBatch(ctx, items)
		if err != nil {
			fail(fmt.Sprintf("failed to persist items: %v", err))
			return
		}
		skipped += persistSkipped
	}
	task.ItemsSaved = saved
	metrics.ItemsSaved.Add(float64(saved))
	metrics.ItemsSkipped.Add(float64(skipped))

	// Complete: zero survivors is still a completion, not a skip.
	msg := fmt.Sprintf("saved %d new items, skipped %d duplicates", saved, skipped)
	if saved == 0 {
		msg = "no new content"
	}
	report(domain.StepComplete, progressDone, msg, &saved)
	metrics.TasksCompleted.Inc()

	s.logger.Info("fetch task completed",
		"task_group_id", task.TaskGroupID,
		"source_id", task.SourceID,
		"saved", saved,
		"skipped", skipped,
	)
}

// BatchStatus returns the current snapshot of a batch's member tasks.
func (s *FetchService) BatchStatus(ctx context.Context, taskGroupID string) (*domain.BatchStatusResponse, error) {
	if _, err := s.registry.Lookup(ctx, taskGroupID); err != nil {
		return nil, err
	}
	return &domain.BatchStatusResponse{
		TaskGroupID: taskGroupID,
		Tasks:       s.states.Snapshot(taskGroupID),
	}, nil
}

// Shutdown waits for all in-flight fetch tasks to finish or the context to
// expire.
func (s *FetchService) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down fetch service")

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("fetch service shutdown completed")
		return nil
	case <-ctx.Done():
		s.logger.Warn("fetch service shutdown timed out")
		return ctx.Err()
	}
}
