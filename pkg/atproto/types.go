package atproto

import "encoding/json"

// CollectionPost is the NSID of Bluesky post records.
const CollectionPost = "app.bsky.feed.post"

// Session is returned by createSession and refreshSession.
type Session struct {
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
	Handle     string `json:"handle"`
	DID        string `json:"did"`
}

// SessionInfo is returned by getSession.
type SessionInfo struct {
	Handle string `json:"handle"`
	DID    string `json:"did"`
}

// Profile is the subset of app.bsky.actor.defs#profileViewDetailed we use.
type Profile struct {
	DID         string `json:"did"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

// ListRecordsParams are the query parameters of com.atproto.repo.listRecords.
type ListRecordsParams struct {
	Repo       string
	Collection string
	Limit      int
	Cursor     string
	// Reverse lists oldest records first.
	Reverse bool
}

// Record is one entry of a listRecords page. Value is kept raw; use
// CreatedAt to read the timestamp.
type Record struct {
	URI   string          `json:"uri"`
	CID   string          `json:"cid,omitempty"`
	Value json.RawMessage `json:"value"`
}

// ListRecordsOutput is a page of records.
type ListRecordsOutput struct {
	Records []Record `json:"records"`
	Cursor  string   `json:"cursor,omitempty"`
}

type createSessionInput struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

const applyWritesDeleteType = "com.atproto.repo.applyWrites#delete"

type applyWritesDelete struct {
	Type       string `json:"$type"`
	Collection string `json:"collection"`
	Rkey       string `json:"rkey"`
}

type applyWritesInput struct {
	Repo   string              `json:"repo"`
	Writes []applyWritesDelete `json:"writes"`
}
