package cocohelper

import (
	"time"
)

// DefaultContributor is written to the info of every dataset created here
const DefaultContributor = "COCOHelpers"

// Info is the dataset level metadata of a COCO file
type Info struct {
	Description string `json:"description,omitempty"`
	Contributor string `json:"contributor"`
	DateCreated string `json:"date_created"`
	URL         string `json:"url"`
	Version     string `json:"version"`
	Year        int    `json:"year"`
	// MergedInfos lists the info of every dataset combined by Merge
	MergedInfos []Info `json:"merged_infos,omitempty"`
}

// NewInfo returns a generic info stamped with the current UTC time
func NewInfo() Info {

	now := time.Now().UTC()

	return Info{
		Contributor: DefaultContributor,
		DateCreated: now.Format("2006-Jan-02, 03:04:05 (MST)"),
		URL:         "",
		Version:     "1.0",
		Year:        now.Year(),
	}
}

func (i Info) isZero() bool {
	return i.Description == "" && i.Contributor == "" && i.DateCreated == "" &&
		i.URL == "" && i.Version == "" && i.Year == 0 && len(i.MergedInfos) == 0
}
