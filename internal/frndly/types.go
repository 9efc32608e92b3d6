package frndly

import "encoding/json"

// Credentials identify the subscriber account and the device identity the
// upstream expects to see. Immutable for the process lifetime.
type Credentials struct {
	Username string
	Password string

	BoxID         string
	TenantCode    string
	DeviceID      int
	DeviceSubType string
	OSVersion     string
	AppVersion    string
	Manufacturer  string
	DisplayLang   string
	Timezone      string

	// ForwardedIP is sent as X-Forwarded-For on every upstream call to work
	// around geographic access restriction.
	ForwardedIP string
}

func (c Credentials) withDefaults() Credentials {
	if c.BoxID == "" {
		c.BoxID = "SHIELD30X8X4X0"
	}
	if c.TenantCode == "" {
		c.TenantCode = "frndlytv"
	}
	if c.DeviceID == 0 {
		c.DeviceID = 43
	}
	if c.DeviceSubType == "" {
		c.DeviceSubType = "nvidia,8.1.0,7.4.4"
	}
	if c.OSVersion == "" {
		c.OSVersion = "8.1.0"
	}
	if c.AppVersion == "" {
		c.AppVersion = "7.4.4"
	}
	if c.Manufacturer == "" {
		c.Manufacturer = "nvidia"
	}
	if c.DisplayLang == "" {
		c.DisplayLang = "eng"
	}
	if c.Timezone == "" {
		c.Timezone = "Pacific/Auckland"
	}
	return c
}

// Channel is one row of the upstream channel listing.
type Channel struct {
	ID      string
	Title   string
	LogoRef string // upstream "bucket,path" pair
}

// Program is one guide schedule entry for a channel.
type Program struct {
	Title       string
	Description string
	StartMS     int64
	EndMS       int64
	Path        string // target path used to resolve the live stream
}

// LiveMapEntry enriches a channel with third-party identifiers.
type LiveMapEntry struct {
	Slug        string
	GracenoteID string
}

// LiveMap maps upstream channel ids to enrichment entries.
type LiveMap map[string]LiveMapEntry

// StreamResult is a resolved, playable stream.
type StreamResult struct {
	URL  string
	Type string
}

// envelope is the common upstream response wrapper.
type envelope struct {
	Status   *bool           `json:"status"`
	Response json.RawMessage `json:"response"`
	Error    *apiError       `json:"error"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type channelRow struct {
	ID      json.Number `json:"id"`
	Display struct {
		Title    string `json:"title"`
		ImageURL string `json:"imageUrl"`
	} `json:"display"`
	Metadata struct {
		IsChannelBanner any `json:"isChannelBanner"`
	} `json:"metadata"`
}

type guideRow struct {
	ChannelID json.Number  `json:"channelId"`
	Programs  []programRow `json:"programs"`
}

type programRow struct {
	Display struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Markers     struct {
			StartTime struct {
				Value json.Number `json:"value"`
			} `json:"startTime"`
			EndTime struct {
				Value json.Number `json:"value"`
			} `json:"endTime"`
		} `json:"markers"`
	} `json:"display"`
	Target struct {
		Path string `json:"path"`
	} `json:"target"`
}

type streamPage struct {
	Streams []struct {
		URL        string `json:"url"`
		StreamType string `json:"streamType"`
	} `json:"streams"`
	PlayerSettings []struct {
		Value json.Number `json:"value"`
	} `json:"playerSettings"`
	SessionInfo struct {
		StreamPollKey string `json:"streamPollKey"`
	} `json:"sessionInfo"`
}

// truthy interprets the loosely typed metadata flags the upstream emits
// (bool, "true", "1", non-zero number).
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != "" && t != "false" && t != "0"
	case float64:
		return t != 0
	}
	return false
}
