package pipeline

import (
	"github.com/brogergvhs/comicgrab/internal/acquire"
	"github.com/brogergvhs/comicgrab/internal/browser"
)

// Capabilities fixes the optional machinery for a run at construction
// time. Absent capabilities are stubs that report themselves
// unavailable, so the pipeline never branches on nil.
type Capabilities struct {
	Browser    browser.Automation
	Transcoder acquire.Transcoder

	hasBrowser bool
}

func NewCapabilities(enableBrowser, enableTranscode bool, bcfg browser.Config, log interface{ Debugf(string, ...any) }) Capabilities {
	caps := Capabilities{
		Browser:    browser.Disabled{},
		Transcoder: acquire.DisabledTranscoder{},
	}

	if enableBrowser {
		caps.Browser = browser.NewChrome(bcfg, log)
		caps.hasBrowser = true
	}
	if enableTranscode {
		caps.Transcoder = acquire.StdTranscoder{}
	}

	return caps
}

func (c Capabilities) HasBrowser() bool { return c.hasBrowser }
