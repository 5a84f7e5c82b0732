package client

import (
	"github.com/aussiebroadwan/aeolius/pkg/aeoliussdk"
)

// State is a step of the session lifecycle.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticatingProfile
	StateConfigLoading
	StateReady
	StateSaving
	StateDeleting
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticatingProfile:
		return "authenticating_profile"
	case StateConfigLoading:
		return "config_loading"
	case StateReady:
		return "ready"
	case StateSaving:
		return "saving"
	case StateDeleting:
		return "deleting"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of the controller at one point in time.
type Snapshot struct {
	State      State
	Generation uint64

	// SignedIn is set while a configuration client exists.
	SignedIn bool

	// Loading is set while any network operation is in flight.
	Loading bool

	Identifier string
	DID        string
	Handle     string
	Service    string
	Avatar     string

	// Configuration is the last configuration received from the manager,
	// nil until one was loaded.
	Configuration *aeoliussdk.Configuration

	// ConfigRevision changes whenever Configuration is replaced, even by an
	// equal value.
	ConfigRevision uint64

	// Err is the last error surfaced to the user, nil after a success.
	Err error
}

type eventKind int

const (
	evLoginStarted eventKind = iota
	evSessionCreated
	evProfileFetched
	evConfigRequested
	evConfigLoaded
	evSaveStarted
	evDeleteStarted
	evFailed
	evLoggedOut
)

// event is one input to the reducer. gen is the generation the operation
// producing it started in; current events apply to any generation.
type event struct {
	kind    eventKind
	gen     uint64
	current bool

	session *aeoliussdk.Session
	avatar  string
	config  *aeoliussdk.ConfigurationClient
	cfg     *aeoliussdk.Configuration

	err       error
	loggedOut bool
}

// model is the reducer's state. It is only touched with Controller.mu held.
type model struct {
	state   State
	gen     uint64
	session *aeoliussdk.Session
	avatar  string
	config  *aeoliussdk.ConfigurationClient
	current *aeoliussdk.Configuration
	rev     uint64
	err     error
}

// reduce applies ev to m. It reports false for events of a superseded
// generation, which leave m untouched.
func (m *model) reduce(ev event) bool {
	if !ev.current && ev.gen != m.gen {
		return false
	}

	switch ev.kind {
	case evLoginStarted:
		m.gen++
		m.signOut()

	case evSessionCreated:
		m.state = StateAuthenticatingProfile
		m.session = ev.session
		m.err = nil

	case evProfileFetched:
		m.state = StateConfigLoading
		m.avatar = ev.avatar
		m.config = ev.config

	case evConfigRequested:
		m.state = StateConfigLoading

	case evConfigLoaded:
		m.state = StateReady
		m.setCurrent(ev.cfg)
		m.err = nil

	case evSaveStarted:
		m.state = StateSaving

	case evDeleteStarted:
		m.state = StateDeleting

	case evFailed:
		m.err = ev.err
		if ev.loggedOut {
			m.gen++
			m.signOut()
			break
		}
		m.state = StateReady
		if m.current == nil {
			def := aeoliussdk.DefaultConfiguration
			m.setCurrent(&def)
		}

	case evLoggedOut:
		m.gen++
		m.signOut()
		m.err = ev.err
	}

	return true
}

func (m *model) signOut() {
	m.state = StateUnauthenticated
	m.session = nil
	m.avatar = ""
	m.config = nil
	m.setCurrent(nil)
}

func (m *model) setCurrent(cfg *aeoliussdk.Configuration) {
	m.current = cfg
	m.rev++
}

func (m *model) snapshot(inflight int) Snapshot {
	s := Snapshot{
		State:          m.state,
		Generation:     m.gen,
		SignedIn:       m.config != nil,
		Loading:        inflight > 0,
		Avatar:         m.avatar,
		ConfigRevision: m.rev,
		Err:            m.err,
	}
	if m.session != nil {
		s.Identifier = m.session.Identifier()
		s.DID = m.session.DID()
		s.Handle = m.session.Handle()
		s.Service = m.session.Service()
	}
	if m.current != nil {
		cfg := *m.current
		s.Configuration = &cfg
	}
	return s
}
