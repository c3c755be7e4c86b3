package frame

import "github.com/gogpu/frame/instance"

// Version is the release version of the module.
const Version = "0.1.0"

// InternalVersion is the engine version reported to the backend.
var InternalVersion = instance.EngineVersion
