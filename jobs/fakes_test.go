package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"spot-letter/events"
	"spot-letter/fetcher"
	"spot-letter/models"
	"spot-letter/repositories"
)

// memoryStates 는 조건부 상태 전이를 메모리에서 흉내 낸다.
// onStatusRead 는 n 번째 Status 호출 직전에 불려 외부 취소를 재현한다.
type memoryStates struct {
	mu           sync.Mutex
	status       map[primitive.ObjectID]models.JobStatus
	errs         map[primitive.ObjectID]string
	statusReads  int
	onStatusRead func(n int)
	failErr      error
}

func (m *memoryStates) init() {
	m.status = map[primitive.ObjectID]models.JobStatus{}
	m.errs = map[primitive.ObjectID]string{}
}

func (m *memoryStates) transition(id primitive.ObjectID, to models.JobStatus, from ...models.JobStatus) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.status[id]
	if !ok {
		return false
	}
	for _, f := range from {
		if cur == f {
			m.status[id] = to
			return true
		}
	}
	return false
}

func (m *memoryStates) MarkProcessing(_ context.Context, id primitive.ObjectID) (bool, error) {
	return m.transition(id, models.JobProcessing, models.JobPending), nil
}

func (m *memoryStates) Fail(_ context.Context, id primitive.ObjectID, message string) (bool, error) {
	if m.failErr != nil {
		return false, m.failErr
	}
	ok := m.transition(id, models.JobFailed, models.JobPending, models.JobProcessing)
	if ok {
		m.mu.Lock()
		m.errs[id] = message
		m.mu.Unlock()
	}
	return ok, nil
}

func (m *memoryStates) Cancel(_ context.Context, id primitive.ObjectID) (bool, error) {
	return m.transition(id, models.JobCancelled, models.JobPending, models.JobProcessing), nil
}

func (m *memoryStates) Status(_ context.Context, id primitive.ObjectID) (models.JobStatus, error) {
	m.mu.Lock()
	m.statusReads++
	n, hook := m.statusReads, m.onStatusRead
	m.mu.Unlock()
	if hook != nil {
		hook(n)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.status[id]
	if !ok {
		return "", repositories.ErrNotFound
	}
	return s, nil
}

func (m *memoryStates) get(id primitive.ObjectID) (models.JobStatus, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status[id], m.errs[id]
}

type memoryImportJobs struct {
	memoryStates
	jobs    map[primitive.ObjectID]*models.ImportJob
	results map[primitive.ObjectID]*models.ImportResult
}

func newMemoryImportJobs() *memoryImportJobs {
	m := &memoryImportJobs{
		jobs:    map[primitive.ObjectID]*models.ImportJob{},
		results: map[primitive.ObjectID]*models.ImportResult{},
	}
	m.init()
	return m
}

func (m *memoryImportJobs) Create(_ context.Context, userID string, window models.TimeWindow) (*models.ImportJob, error) {
	job := &models.ImportJob{ID: primitive.NewObjectID(), UserID: userID, Window: window, Status: models.JobPending, CreatedAt: time.Now()}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	m.status[job.ID] = models.JobPending
	return job, nil
}

func (m *memoryImportJobs) FindByID(_ context.Context, id primitive.ObjectID) (*models.ImportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *job
	out.Status = m.status[id]
	out.Error = m.errs[id]
	out.Result = m.results[id]
	return &out, nil
}

func (m *memoryImportJobs) Complete(_ context.Context, id primitive.ObjectID, result *models.ImportResult) (bool, error) {
	if !m.transition(id, models.JobCompleted, models.JobProcessing) {
		return false, nil
	}
	m.mu.Lock()
	m.results[id] = result
	m.mu.Unlock()
	return true, nil
}

type memorySaveJobs struct {
	memoryStates
	jobs    map[primitive.ObjectID]*models.SaveJob
	results map[primitive.ObjectID]*models.SaveResult
}

func newMemorySaveJobs() *memorySaveJobs {
	m := &memorySaveJobs{
		jobs:    map[primitive.ObjectID]*models.SaveJob{},
		results: map[primitive.ObjectID]*models.SaveResult{},
	}
	m.init()
	return m
}

func (m *memorySaveJobs) Create(_ context.Context, userID string, candidates []models.EnrichedCandidate) (*models.SaveJob, error) {
	job := &models.SaveJob{ID: primitive.NewObjectID(), UserID: userID, Candidates: candidates, Status: models.JobPending, CreatedAt: time.Now()}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	m.status[job.ID] = models.JobPending
	return job, nil
}

func (m *memorySaveJobs) FindByID(_ context.Context, id primitive.ObjectID) (*models.SaveJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *job
	out.Status = m.status[id]
	out.Error = m.errs[id]
	out.Result = m.results[id]
	return &out, nil
}

func (m *memorySaveJobs) Complete(_ context.Context, id primitive.ObjectID, result *models.SaveResult) (bool, error) {
	if !m.transition(id, models.JobCompleted, models.JobProcessing) {
		return false, nil
	}
	m.mu.Lock()
	m.results[id] = result
	m.mu.Unlock()
	return true, nil
}

type memoryAccounts map[string]models.ConnectedAccount

func (m memoryAccounts) FindForUser(_ context.Context, userID string) (*models.ConnectedAccount, error) {
	a, ok := m[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &a, nil
}

// staticSource 는 한 페이지만 돌려주는 콘텐츠 소스다.
type staticSource struct {
	posts []models.RawPost
	err   error
}

func (s *staticSource) ListPosts(context.Context, fetcher.ListRequest) (*fetcher.Page, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &fetcher.Page{Posts: s.posts}, nil
}

func newFetcher(src fetcher.Source) *fetcher.Fetcher {
	return fetcher.New(50, nil).Register(models.AccountProviderInstagram, src)
}

// captionExtractor 는 캡션을 쉼표로 나눠 후보로 만든다.
type captionExtractor struct {
	calls   int
	panicOn string
}

func (e *captionExtractor) ExtractFromPost(_ context.Context, p models.RawPost) []models.CandidateName {
	e.calls++
	if e.panicOn != "" && p.ExternalID == e.panicOn {
		panic("extractor exploded")
	}
	var out []models.CandidateName
	for _, n := range strings.Split(p.Caption, ",") {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, models.CandidateName{Name: n, SourcePostID: p.ExternalID})
		}
	}
	return out
}

// tableResolver 는 known 에 있는 이름만 보강한다.
type tableResolver struct {
	known     map[string]models.EnrichedCandidate
	calls     []string
	backfills []string
	onResolve func()
}

func (r *tableResolver) Resolve(_ context.Context, c models.CandidateName) (*models.EnrichedCandidate, bool) {
	r.calls = append(r.calls, c.Name)
	if r.onResolve != nil {
		r.onResolve()
	}
	e, ok := r.known[c.Name]
	if !ok {
		return nil, false
	}
	e.CandidateName = c
	return &e, true
}

func (r *tableResolver) BackfillSummary(_ context.Context, c *models.EnrichedCandidate) bool {
	r.backfills = append(r.backfills, c.Name)
	c.SummaryLocation = "東京都港区"
	return true
}

// fakeMatcher 는 hits 에 있는 이름에 대해 매핑을 돌려준다.
type fakeMatcher struct {
	provider string
	hits     map[string]string
	err      error
	matched  []string
	verified []string
	attached map[primitive.ObjectID]string
}

func newFakeMatcher(provider string, hits map[string]string) *fakeMatcher {
	return &fakeMatcher{provider: provider, hits: hits, attached: map[primitive.ObjectID]string{}}
}

func (m *fakeMatcher) Provider() string { return m.provider }

func (m *fakeMatcher) Match(_ context.Context, c models.EnrichedCandidate) (*models.InventoryMapping, error) {
	m.matched = append(m.matched, c.Name)
	if m.err != nil {
		return nil, m.err
	}
	id, ok := m.hits[c.Name]
	if !ok {
		return nil, nil
	}
	return &models.InventoryMapping{Provider: m.provider, ExternalID: id}, nil
}

// Verify 는 hits 에 같은 id 가 있을 때만 매핑을 돌려준다.
func (m *fakeMatcher) Verify(_ context.Context, c models.EnrichedCandidate, externalID string) (*models.InventoryMapping, error) {
	m.verified = append(m.verified, c.Name)
	if m.err != nil {
		return nil, m.err
	}
	if m.hits[c.Name] != externalID {
		return nil, nil
	}
	return &models.InventoryMapping{Provider: m.provider, ExternalID: externalID}, nil
}

func (m *fakeMatcher) Attach(_ context.Context, placeID primitive.ObjectID, mapping *models.InventoryMapping) (bool, error) {
	if _, ok := m.attached[placeID]; ok {
		return false, nil
	}
	m.attached[placeID] = mapping.ExternalID
	return true, nil
}

// memoryPlaces 는 장소와 출처 기록을 담고, 트랜잭션 실패 시 스냅샷으로 되돌린다.
type memoryPlaces struct {
	places        map[string]primitive.ObjectID
	provenances   []string
	failOnSource  string
	upsertFailErr error
}

func newMemoryPlaces() *memoryPlaces {
	return &memoryPlaces{places: map[string]primitive.ObjectID{}}
}

func (m *memoryPlaces) UpsertPlace(_ context.Context, ownerID string, c models.EnrichedCandidate, _ string) (primitive.ObjectID, error) {
	if m.upsertFailErr != nil {
		return primitive.NilObjectID, m.upsertFailErr
	}
	key := ownerID + "/" + c.ExternalPlaceID
	if id, ok := m.places[key]; ok {
		return id, nil
	}
	id := primitive.NewObjectID()
	m.places[key] = id
	return id, nil
}

func (m *memoryPlaces) RecordImportProvenance(_ context.Context, _ primitive.ObjectID, sourcePostID string, _ map[string]any) error {
	if sourcePostID == m.failOnSource {
		return errors.New("provenance write failed")
	}
	m.provenances = append(m.provenances, sourcePostID)
	return nil
}

func (m *memoryPlaces) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	placesBefore := make(map[string]primitive.ObjectID, len(m.places))
	for k, v := range m.places {
		placesBefore[k] = v
	}
	provBefore := append([]string(nil), m.provenances...)
	if err := fn(ctx); err != nil {
		m.places = placesBefore
		m.provenances = provBefore
		return err
	}
	return nil
}

type fixedLabeler struct {
	label string
	err   error
	calls int
}

func (l *fixedLabeler) Label(context.Context, string, []string) (string, error) {
	l.calls++
	return l.label, l.err
}

type recordingNotifier struct {
	finished []events.JobFinishedEvent
}

func (n *recordingNotifier) PublishFinished(_ context.Context, f events.JobFinishedEvent) error {
	n.finished = append(n.finished, f)
	return nil
}

type recordingRequests struct {
	requested []string
	err       error
}

func (r *recordingRequests) PublishRequested(_ context.Context, kind events.JobKind, jobID, _ string) error {
	if r.err != nil {
		return r.err
	}
	r.requested = append(r.requested, string(kind)+":"+jobID)
	return nil
}
