package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"parkfinder/internal/apperr"
	"parkfinder/internal/model"
)

// User-facing messages for the domain conditions that are not errors
const (
	MsgLocationNotFound   = "Location not found in mapping."
	MsgNoAvailabilityData = "No availability data for this carpark."
	MsgCheckFirst         = "Please check carpark availability first."
	MsgRouteFailed        = ErrMsgRouteFetch
)

// searchState is the Search concern. availability only ever holds ids of matches.
type searchState struct {
	phase        model.SearchPhase
	text         string
	matches      []model.Facility
	availability map[string]model.Lots
}

// checkState is the Check concern. selected is non-nil only in model.Checked.
type checkState struct {
	phase    model.CheckPhase
	selected *checkedFacility
}

type checkedFacility struct {
	facility    model.Facility
	destination model.Point
	lots        int
}

// routeState is the Route concern. result is non-nil only in model.RouteReady.
// origin is the typed origin the current cycle was started from.
type routeState struct {
	phase  model.RoutePhase
	origin string
	result *model.RouteResult
}

// Controller owns one session's state and drives the catalog, availability,
// location and route services in response to user events.
//
// Every asynchronous result is tagged with the sequence number of its concern
// at launch time and discarded on arrival if a newer trigger has happened
// since, so results apply in trigger order rather than completion order.
type Controller struct {
	catalog      *CatalogIndex
	availability AvailabilityFetcher
	origins      OriginResolver
	routes       RouteFetcher
	callTimeout  time.Duration
	log          *zap.Logger

	mu        sync.Mutex
	search    searchState
	check     checkState
	route     routeState
	origin    string
	errorMsg  string
	inflight  int
	version   uint64
	searchSeq uint64
	checkSeq  uint64
	routeSeq  uint64

	bus       *eventBus
	observers observers
	wg        sync.WaitGroup
}

// ControllerDeps bundles the collaborators of a Controller
type ControllerDeps struct {
	Catalog      *CatalogIndex
	Availability AvailabilityFetcher
	Origins      OriginResolver
	Routes       RouteFetcher
	// CallTimeout bounds every external call; zero means no deadline
	CallTimeout time.Duration
	Log         *zap.Logger
}

// NewController creates a controller with an empty session
func NewController(deps ControllerDeps) *Controller {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	c := &Controller{
		catalog:      deps.Catalog,
		availability: deps.Availability,
		origins:      deps.Origins,
		routes:       deps.Routes,
		callTimeout:  deps.CallTimeout,
		log:          log,
		search:       searchState{matches: []model.Facility{}, availability: map[string]model.Lots{}},
		bus:          newEventBus(),
	}

	// Route recomputes when the origin changes under a checked facility,
	// and when a newly checked facility already has a typed origin.
	c.bus.subscribe(eventOriginChanged, func() { c.autoRoute(false) })
	c.bus.subscribe(eventFacilityChecked, func() { c.autoRoute(true) })
	return c
}

// State returns a copy of the current session state
func (c *Controller) State() model.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn to receive a state copy after every change.
// It returns a function that removes the subscription.
func (c *Controller) Subscribe(fn func(model.SessionState)) func() {
	return c.observers.add(fn)
}

// Settle blocks until every background fetch launched so far has finished
// (applied or discarded), or ctx is done.
func (c *Controller) Settle(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetQuery updates the search text. Matches are recomputed synchronously;
// availability for them arrives later from a background fetch.
func (c *Controller) SetQuery(ctx context.Context, text string) model.SessionState {
	c.mu.Lock()
	c.searchSeq++
	seq := c.searchSeq
	c.search.text = text
	c.search.matches = c.catalog.Search(text)
	c.search.availability = map[string]model.Lots{}
	if len(c.search.matches) == 0 {
		c.search.phase = model.SearchIdle
		state := c.changedLocked()
		c.mu.Unlock()
		c.observers.notify(state)
		return state
	}
	c.search.phase = model.SearchTyping
	matches := c.search.matches
	state := c.changedLocked()
	c.mu.Unlock()
	c.observers.notify(state)

	c.wg.Add(1)
	go c.mergeAvailability(ctx, seq, text, matches)
	return state
}

func (c *Controller) mergeAvailability(ctx context.Context, seq uint64, text string, matches []model.Facility) {
	defer c.wg.Done()

	callCtx, cancel := c.callContext(ctx)
	snapshot, err := c.availability.FetchAll(callCtx)
	cancel()

	c.mu.Lock()
	if seq != c.searchSeq {
		c.mu.Unlock()
		c.log.Debug("discarding stale availability", zap.String("query", text), zap.Uint64("seq", seq))
		return
	}
	c.search.phase = model.SearchIdle
	if err != nil {
		// Snapshot unavailable: leave counts absent rather than report zero
		c.log.Warn("availability for matches unavailable", zap.String("query", text), zap.Error(err))
	} else {
		c.search.availability = snapshot.For(matches)
	}
	state := c.changedLocked()
	c.mu.Unlock()
	c.observers.notify(state)
}

// SelectSuggestion puts a suggested address in the search box, closes the
// suggestion list and checks it.
func (c *Controller) SelectSuggestion(ctx context.Context, address string) model.SessionState {
	c.mu.Lock()
	c.searchSeq++
	c.search = searchState{
		phase:        model.SearchIdle,
		text:         address,
		matches:      []model.Facility{},
		availability: map[string]model.Lots{},
	}
	c.changedLocked()
	c.mu.Unlock()
	return c.Check(ctx, address)
}

// Submit checks the current search box text
func (c *Controller) Submit(ctx context.Context) model.SessionState {
	c.mu.Lock()
	text := c.search.text
	c.mu.Unlock()
	return c.Check(ctx, text)
}

// Check resolves address to one catalog facility and fetches its live
// availability. It blocks until the check completes.
func (c *Controller) Check(ctx context.Context, address string) model.SessionState {
	c.mu.Lock()
	c.checkSeq++
	seq := c.checkSeq

	facility, ok := c.catalog.FindFirst(address)
	destination, hasCoords := facility.Point()
	if !ok || !hasCoords {
		c.failCheckLocked(MsgLocationNotFound)
		state := c.changedLocked()
		c.mu.Unlock()
		c.observers.notify(state)
		c.log.Info("check failed", zap.String("address", address), zap.String("reason", "no mapping"))
		return state
	}

	if c.check.selected == nil || c.check.selected.facility.ID != facility.ID {
		c.resetRouteLocked()
	}
	c.check = checkState{phase: model.Checking}
	c.inflight++
	state := c.changedLocked()
	c.mu.Unlock()
	c.observers.notify(state)

	callCtx, cancel := c.callContext(ctx)
	snapshot, err := c.availability.FetchAll(callCtx)
	cancel()

	c.mu.Lock()
	c.inflight--
	if seq != c.checkSeq {
		state := c.changedLocked()
		c.mu.Unlock()
		c.observers.notify(state)
		c.log.Debug("discarding stale check", zap.String("facility", facility.ID), zap.Uint64("seq", seq))
		return state
	}

	checked := false
	switch {
	case err != nil:
		c.failCheckLocked(apperr.UserMessage(err, ErrMsgAvailabilityFetch))
		c.log.Warn("check failed", zap.String("facility", facility.ID), zap.Error(err))
	default:
		lots, known := snapshot.Lots(facility.ID).Count()
		if !known {
			c.failCheckLocked(MsgNoAvailabilityData)
			c.log.Info("check failed", zap.String("facility", facility.ID), zap.String("reason", "no availability data"))
			break
		}
		c.check = checkState{
			phase:    model.Checked,
			selected: &checkedFacility{facility: facility, destination: destination, lots: lots},
		}
		c.errorMsg = ""
		checked = true
		c.log.Info("facility checked", zap.String("facility", facility.ID), zap.Int("lots_available", lots))
	}
	state = c.changedLocked()
	c.mu.Unlock()
	c.observers.notify(state)

	if checked {
		c.bus.publish(eventFacilityChecked)
		return c.State()
	}
	return state
}

// SetOrigin updates the typed origin address. An empty address means
// "use device location". A change re-triggers routing when a facility is checked.
func (c *Controller) SetOrigin(ctx context.Context, address string) model.SessionState {
	c.mu.Lock()
	if address == c.origin {
		state := c.snapshotLocked()
		c.mu.Unlock()
		return state
	}
	c.origin = address
	state := c.changedLocked()
	c.mu.Unlock()
	c.observers.notify(state)

	c.bus.publish(eventOriginChanged)
	return c.State()
}

// RequestRoute computes a route from the origin to the checked facility and
// waits for this cycle to finish. A later trigger supersedes it; the returned
// state then reflects whatever is current.
func (c *Controller) RequestRoute(ctx context.Context) model.SessionState {
	done, state := c.startRoute(ctx, false)
	if done == nil {
		return state
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
	return c.State()
}

// autoRoute starts a route cycle from an event. onCheck is true when the
// trigger was a newly checked facility, which only routes from a typed origin,
// and only when no cycle exists for that origin. An origin typed while the
// check was in flight therefore still re-routes once the check lands.
func (c *Controller) autoRoute(onCheck bool) {
	c.mu.Lock()
	ok := c.check.phase == model.Checked
	if onCheck {
		stale := c.route.phase == model.RouteIdle || c.route.origin != c.origin
		ok = ok && strings.TrimSpace(c.origin) != "" && stale
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	c.startRoute(context.Background(), true)
}

// startRoute launches one Resolving -> Routing cycle. It returns nil when
// the precondition fails; auto-triggered cycles then fail silently.
func (c *Controller) startRoute(ctx context.Context, auto bool) (<-chan struct{}, model.SessionState) {
	c.mu.Lock()
	if c.check.phase != model.Checked || c.check.selected == nil {
		if auto {
			state := c.snapshotLocked()
			c.mu.Unlock()
			return nil, state
		}
		c.resetRouteLocked()
		c.route.phase = model.RouteFailed
		c.errorMsg = MsgCheckFirst
		state := c.changedLocked()
		c.mu.Unlock()
		c.observers.notify(state)
		return nil, state
	}

	c.routeSeq++
	seq := c.routeSeq
	origin := c.origin
	selected := *c.check.selected
	c.route = routeState{phase: model.RouteResolving, origin: origin}
	c.inflight++
	state := c.changedLocked()
	c.mu.Unlock()
	c.observers.notify(state)

	c.log.Info("route requested",
		zap.String("facility", selected.facility.ID),
		zap.Bool("auto", auto),
		zap.Bool("device_location", strings.TrimSpace(origin) == ""),
	)

	done := make(chan struct{})
	c.wg.Add(1)
	go c.runRoute(ctx, seq, origin, selected, done)
	return done, state
}

func (c *Controller) runRoute(ctx context.Context, seq uint64, origin string, selected checkedFacility, done chan struct{}) {
	defer c.wg.Done()
	defer close(done)

	callCtx, cancel := c.callContext(ctx)
	start, err := c.origins.ResolveOrigin(callCtx, origin)
	cancel()

	c.mu.Lock()
	if seq != c.routeSeq {
		c.inflight--
		state := c.changedLocked()
		c.mu.Unlock()
		c.observers.notify(state)
		c.log.Debug("discarding stale origin", zap.Uint64("seq", seq))
		return
	}
	if err != nil {
		c.inflight--
		c.route = routeState{phase: model.RouteFailed, origin: origin}
		c.errorMsg = apperr.UserMessage(err, MsgRouteFailed)
		state := c.changedLocked()
		c.mu.Unlock()
		c.observers.notify(state)
		c.log.Info("origin resolution failed", zap.String("kind", apperr.GetKind(err).String()), zap.Error(err))
		return
	}
	c.route.phase = model.RouteRouting
	state := c.changedLocked()
	c.mu.Unlock()
	c.observers.notify(state)

	callCtx, cancel = c.callContext(ctx)
	path, err := c.routes.FetchRoute(callCtx, start, selected.destination)
	cancel()

	c.mu.Lock()
	c.inflight--
	if seq != c.routeSeq {
		state := c.changedLocked()
		c.mu.Unlock()
		c.observers.notify(state)
		c.log.Debug("discarding stale route", zap.Uint64("seq", seq))
		return
	}
	if err != nil {
		c.route = routeState{phase: model.RouteFailed, origin: origin}
		c.errorMsg = apperr.UserMessage(err, MsgRouteFailed)
		c.log.Warn("route fetch failed", zap.String("facility", selected.facility.ID), zap.Error(err))
	} else {
		if path == nil {
			path = []model.Point{}
		}
		c.route = routeState{
			phase:  model.RouteReady,
			origin: origin,
			result: &model.RouteResult{Origin: start, Path: path},
		}
		c.errorMsg = ""
		c.log.Info("route ready", zap.String("facility", selected.facility.ID), zap.Int("points", len(path)))
	}
	state = c.changedLocked()
	c.mu.Unlock()
	c.observers.notify(state)
}

// callContext detaches from the caller's cancellation, so a request that
// goes away does not abort a fetch, and applies the per-call deadline.
func (c *Controller) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithoutCancel(ctx)
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.callTimeout)
}

func (c *Controller) failCheckLocked(msg string) {
	c.check = checkState{phase: model.CheckFailed}
	c.errorMsg = msg
	c.resetRouteLocked()
}

// resetRouteLocked drops the current route and invalidates any in-flight cycle
func (c *Controller) resetRouteLocked() {
	c.routeSeq++
	c.route = routeState{phase: model.RouteIdle}
}

func (c *Controller) changedLocked() model.SessionState {
	c.version++
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() model.SessionState {
	matches := make([]model.Facility, len(c.search.matches))
	copy(matches, c.search.matches)
	availability := make(map[string]model.Lots, len(c.search.availability))
	for id, lots := range c.search.availability {
		availability[id] = lots
	}

	state := model.SessionState{
		QueryText:         c.search.text,
		Matches:           matches,
		MatchAvailability: availability,
		OriginAddress:     c.origin,
		RoutePath:         []model.Point{},
		ErrorMessage:      c.errorMsg,
		Busy:              c.inflight > 0,
		Version:           c.version,
		Search:            c.search.phase,
		Check:             c.check.phase,
		Route:             c.route.phase,
	}

	if sel := c.check.selected; sel != nil {
		facility := sel.facility
		lots := sel.lots
		state.SelectedFacility = &facility
		state.SelectedAvailability = &lots
	}
	if res := c.route.result; res != nil {
		origin := res.Origin
		state.OriginCoords = &origin
		state.RoutePath = append(state.RoutePath, res.Path...)
		state.RouteVisible = true
	}
	return state
}
