package dispatch

import (
	"context"
	"sync"
	"sync/atomic"

	"herald/internal/adapter"
	"herald/internal/organization"
	"herald/internal/publisher"
	"herald/pkg/errors"
	"herald/pkg/models"
)

type fakeRegistry struct {
	publishers []publisher.Publisher
	reads      int32
	err        error
}

func (r *fakeRegistry) RetrievePublishers(_ context.Context, skip, limit int) ([]publisher.Publisher, int, error) {
	atomic.AddInt32(&r.reads, 1)
	if r.err != nil {
		return nil, 0, r.err
	}
	if skip >= len(r.publishers) {
		return nil, len(r.publishers), nil
	}
	end := skip + limit
	if end > len(r.publishers) {
		end = len(r.publishers)
	}
	page := make([]publisher.Publisher, end-skip)
	copy(page, r.publishers[skip:end])
	return page, len(r.publishers), nil
}

func (r *fakeRegistry) RetrievePublisher(_ context.Context, id string) (*publisher.Publisher, error) {
	for i := range r.publishers {
		if r.publishers[i].ID == id {
			p := r.publishers[i]
			return &p, nil
		}
	}
	return nil, errors.ErrNotFound
}

type fakeOrgs struct {
	orgs map[string][]string
	err  error
}

func (o *fakeOrgs) RetrieveOrganization(_ context.Context, id string) (*organization.Organization, error) {
	if o.err != nil {
		return nil, o.err
	}
	ids, ok := o.orgs[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return &organization.Organization{ID: id, DeploymentIDs: ids}, nil
}

type fakeUsers struct {
	users       map[string]map[string]interface{}
	includeNull bool
	err         error
}

func (u *fakeUsers) UserMetadata(_ context.Context, _ string, ids []string, includeNull bool) (map[string]map[string]interface{}, error) {
	u.includeNull = includeNull
	if u.err != nil {
		return nil, u.err
	}
	out := make(map[string]map[string]interface{})
	for _, id := range ids {
		if user, ok := u.users[id]; ok {
			out[id] = user
		}
	}
	return out, nil
}

type fakeStore struct {
	primitives map[string]models.Primitive
	err        error
}

func (s *fakeStore) RetrievePrimitive(_ context.Context, _, _, id string) (models.Primitive, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.primitives[id]
	if !ok {
		return nil, errors.ErrNotFound.AsFatal()
	}
	return models.Primitive(models.CloneMap(p)), nil
}

// fakeAdapter records what the coordinator asked of it.
type fakeAdapter struct {
	mu          sync.Mutex
	prepared    []*models.Event
	sends       int
	pings       int
	pingCtxErrs []error
	pingRelease chan struct{}
	refuse      bool
	panicOnSend bool
	override    func(publisher.Transform) publisher.Transform
}

func (a *fakeAdapter) Prepare(_ context.Context, event *models.Event) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prepared = append(a.prepared, event)
	return !a.refuse
}

func (a *fakeAdapter) Send(context.Context) {
	if a.panicOnSend {
		panic("adapter exploded")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sends++
}

func (a *fakeAdapter) SendPing(ctx context.Context) {
	if a.pingRelease != nil {
		<-a.pingRelease
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pings++
	a.pingCtxErrs = append(a.pingCtxErrs, ctx.Err())
}

type overridingAdapter struct {
	*fakeAdapter
}

func (a overridingAdapter) OverrideTransform(t publisher.Transform) publisher.Transform {
	return a.override(t)
}

type fakeAdapters struct {
	mu       sync.Mutex
	adapters map[string]*fakeAdapter
	errs     map[string]error
	built    []string
}

func newFakeAdapters() *fakeAdapters {
	return &fakeAdapters{adapters: make(map[string]*fakeAdapter), errs: make(map[string]error)}
}

func (f *fakeAdapters) get(id string) *fakeAdapter {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.adapters[id]
	if !ok {
		a = &fakeAdapter{}
		f.adapters[id] = a
	}
	return a
}

func (f *fakeAdapters) newAdapter(_ context.Context, p *publisher.Publisher, _ adapter.Deps) (adapter.Adapter, error) {
	f.mu.Lock()
	f.built = append(f.built, p.ID)
	err := f.errs[p.ID]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	a := f.get(p.ID)
	if a.override != nil {
		return overridingAdapter{a}, nil
	}
	return a, nil
}

func (f *fakeAdapters) builtFor(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.built {
		if b == id {
			return true
		}
	}
	return false
}

type recordingReporter struct {
	mu      sync.Mutex
	reports []adapter.Report
}

func (r *recordingReporter) Report(_ context.Context, rep adapter.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
}

func (r *recordingReporter) all() []adapter.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]adapter.Report(nil), r.reports...)
}
