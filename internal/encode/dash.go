package encode

import "fmt"

// dashOptions is the DASH-specific muxer option set built for a live
// DASH output (setup step 8). Archive mode forces window_size=0.
type dashOptions struct {
	streaming     bool
	useTimeline   bool
	useTemplate   bool
	removeAtExit  bool
	windowSize    int
	segDuration   string
	initSegName   string
	mediaSegName  string
}

func buildDashOptions(fps int, windowSize int, initSegName, mediaSegName string, archive bool) dashOptions {
	if archive {
		windowSize = 0
	}
	return dashOptions{
		streaming:    true,
		useTimeline:  true,
		useTemplate:  true,
		removeAtExit: false,
		windowSize:   windowSize,
		segDuration:  fmt.Sprintf("1/%d", fps),
		initSegName:  initSegName,
		mediaSegName: mediaSegName,
	}
}
