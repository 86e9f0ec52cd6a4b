// Package prebuilt provides ready-made graph templates ("prebuilts") for
// the agent patterns this project runs, such as the tool-calling ReAct
// loop in prebuilt/react. Each prebuilt exposes a simple configuration
// and returns a *flowgraph.Graph that runs on the default runtime.
package prebuilt

import "errors"

// ErrUnknownPrebuilt is returned for names nothing registered
var ErrUnknownPrebuilt = errors.New("unknown prebuilt")

// ErrInvalidConfig is returned when a builder gets a config of the wrong type
var ErrInvalidConfig = errors.New("invalid prebuilt config")
