package album

import (
	"encoding/json"
	"strings"
	"time"
)

type Album struct {
	ID                string   `json:"album_id"`
	Name              string   `json:"name"`
	Description       string   `json:"description,omitempty"`
	CreatedTime       string   `json:"created_time,omitempty"`
	LastEventTime     string   `json:"last_event_time,omitempty"`
	NumberOfUsers     int      `json:"number_of_users,omitempty"`
	NumberOfStudies   int      `json:"number_of_studies,omitempty"`
	NumberOfSeries    int      `json:"number_of_series,omitempty"`
	NumberOfInstances int      `json:"number_of_instances,omitempty"`
	Modalities        []string `json:"modalities,omitempty"`
	IsAdmin           bool     `json:"is_admin,omitempty"`
	IsFavorite        bool     `json:"is_favorite,omitempty"`
}

// Permissions granted by a capability token.
type Permissions struct {
	Read        bool
	Appropriate bool
	Download    bool
	Write       bool
}

// Capability is a scoped token giving access to one album through a link.
type Capability struct {
	ID                    string `json:"id"`
	Secret                string `json:"secret"`
	Title                 string `json:"title"`
	ScopeType             string `json:"scope_type"`
	AlbumID               string `json:"album_id,omitempty"`
	ExpirationTime        string `json:"expiration_time,omitempty"`
	ReadPermission        bool   `json:"read_permission"`
	AppropriatePermission bool   `json:"appropriate_permission"`
	DownloadPermission    bool   `json:"download_permission"`
	WritePermission       bool   `json:"write_permission"`
}

var ReadOnly = Permissions{Read: true, Download: true}

func (album *Album) String() string {
	b, _ := json.Marshal(album)
	return string(b)
}

func (capability *Capability) String() string {
	b, _ := json.Marshal(capability)
	return string(b)
}

// IsValidName reports whether name can be used for a new album.
func IsValidName(name string) bool {
	name = strings.TrimSpace(name)
	return name != "" && len(name) <= 255
}

// ShareURL is the viewer link for a capability secret. The "/api" suffix of
// the service address is not part of viewer links.
func ShareURL(serviceURL, secret string) string {
	base := strings.TrimSuffix(strings.TrimRight(serviceURL, "/"), "/api")
	return base + "/view/" + secret
}

func formatExpiration(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
