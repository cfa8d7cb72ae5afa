package materialize

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// episodeDetails is the minimal NFO descriptor library scanners read for an
// episode. encoding/xml escapes all text content.
type episodeDetails struct {
	XMLName xml.Name `xml:"episodedetails"`

	Title     string `xml:"title"`
	ShowTitle string `xml:"showtitle"`
	Season    int    `xml:"season"`
	Episode   int    `xml:"episode"`
}

// writeEpisodeNFO writes the XML descriptor next to an episode pointer file.
func (m *Materializer) writeEpisodeNFO(set *ArtifactSet, strmPath, showTitle, epTitle string, season, episode int) {
	if strings.TrimSpace(epTitle) == "" {
		epTitle = fmt.Sprintf("Episode %d", episode)
	}
	doc := episodeDetails{
		Title:     epTitle,
		ShowTitle: showTitle,
		Season:    season,
		Episode:   episode,
	}
	path := strings.TrimSuffix(strmPath, strmExt) + nfoExt
	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		set.Failed = append(set.Failed, FileError{Path: path, Err: fmt.Errorf("marshal nfo: %w", err)})
		return
	}
	content := append([]byte(xml.Header), data...)
	m.writeFile(set, path, append(content, '\n'))
}
