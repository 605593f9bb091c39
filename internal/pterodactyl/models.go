package pterodactyl

import (
	"bytes"
	"encoding/json"
	"strconv"
)

type resource[T any] struct {
	Object     string `json:"object"`
	Attributes T      `json:"attributes"`
}

type listResponse[T any] struct {
	Object string        `json:"object"`
	Data   []resource[T] `json:"data"`
	Meta   *ListMeta     `json:"meta,omitempty"`
}

func (l listResponse[T]) items() []T {
	out := make([]T, 0, len(l.Data))
	for _, r := range l.Data {
		out = append(out, r.Attributes)
	}
	return out
}

// ListMeta is the pagination block the panel attaches to lists. Only the
// first page is ever requested.
type ListMeta struct {
	Pagination struct {
		Total       int `json:"total"`
		Count       int `json:"count"`
		PerPage     int `json:"per_page"`
		CurrentPage int `json:"current_page"`
		TotalPages  int `json:"total_pages"`
	} `json:"pagination"`
}

// ServerStatus is the panel's server state. The panel reports null for a
// server in its normal state.
type ServerStatus string

const (
	StatusUnknown         ServerStatus = "unknown"
	StatusRunning         ServerStatus = "running"
	StatusInstalling      ServerStatus = "installing"
	StatusInstallFailed   ServerStatus = "install_failed"
	StatusSuspended       ServerStatus = "suspended"
	StatusRestoringBackup ServerStatus = "restoring_backup"
)

// Display returns the status, defaulting to "unknown".
func (s ServerStatus) Display() string {
	if s == "" {
		return string(StatusUnknown)
	}
	return string(s)
}

func (s ServerStatus) Online() bool { return s == StatusRunning }

// NodeRef holds a node reference; the client API reports the node name and
// the application API the numeric id.
type NodeRef string

func (n *NodeRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = NodeRef(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*n = NodeRef(num.String())
	return nil
}

type Limits struct {
	Memory  int     `json:"memory"`
	Swap    int     `json:"swap"`
	Disk    int     `json:"disk"`
	IO      int     `json:"io"`
	CPU     int     `json:"cpu"`
	Threads *string `json:"threads,omitempty"`
}

type FeatureLimits struct {
	Databases   int `json:"databases"`
	Allocations int `json:"allocations"`
	Backups     int `json:"backups"`
}

// Server is a panel server as seen by either API. Fields only one API
// reports are left zero by the other.
type Server struct {
	ID            int           `json:"id,omitempty"`
	UUID          string        `json:"uuid"`
	Identifier    string        `json:"identifier"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Status        ServerStatus  `json:"status"`
	Node          NodeRef       `json:"node"`
	Limits        Limits        `json:"limits"`
	FeatureLimits FeatureLimits `json:"feature_limits"`
	IsSuspended   bool          `json:"is_suspended,omitempty"`
	IsInstalling  bool          `json:"is_installing,omitempty"`
	ServerOwner   bool          `json:"server_owner,omitempty"`
}

type ResourceUsage struct {
	CurrentState string    `json:"current_state"`
	IsSuspended  bool      `json:"is_suspended"`
	Resources    Resources `json:"resources"`
}

type Resources struct {
	MemoryBytes    int64   `json:"memory_bytes"`
	CPUAbsolute    float64 `json:"cpu_absolute"`
	DiskBytes      int64   `json:"disk_bytes"`
	NetworkRxBytes int64   `json:"network_rx_bytes"`
	NetworkTxBytes int64   `json:"network_tx_bytes"`
	Uptime         int64   `json:"uptime"`
}

type Node struct {
	ID              int    `json:"id"`
	UUID            string `json:"uuid"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	LocationID      int    `json:"location_id"`
	FQDN            string `json:"fqdn"`
	Scheme          string `json:"scheme"`
	MaintenanceMode bool   `json:"maintenance_mode"`
	Memory          int    `json:"memory"`
	Disk            int    `json:"disk"`
}

func (n Node) String() string {
	return n.Name + " (#" + strconv.Itoa(n.ID) + ")"
}

// CreateServerRequest is the application API payload for creating a server.
// The panel also requires an owner and an allocation; both are sent only
// when set.
type CreateServerRequest struct {
	Name          string            `json:"name"`
	Description   string            `json:"description,omitempty"`
	User          int               `json:"user,omitempty"`
	Egg           int               `json:"egg"`
	DockerImage   string            `json:"docker_image"`
	Startup       string            `json:"startup"`
	Environment   map[string]string `json:"environment,omitempty"`
	Limits        Limits            `json:"limits"`
	FeatureLimits FeatureLimits     `json:"feature_limits"`
	Allocation    *Allocation       `json:"allocation,omitempty"`
}

type Allocation struct {
	Default int `json:"default"`
}
