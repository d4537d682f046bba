// Package manifest loads the vetobus manifest: which buses exist, which Lua
// scripts listen on them, which topics are guarded and which directories are
// watched.
//
// Manifests are TOML or YAML, chosen by file extension:
//
//	[log]
//	level = "debug"
//	format = "json"
//
//	[metrics]
//	listen = ":9090"
//
//	[[buses]]
//	name = "files"
//
//	  [[buses.scripts]]
//	  path = "audit.lua"
//	  role = "subscriber"
//	  match = "pattern"
//	  topic = "fs.**"
//
//	  [[buses.guards]]
//	  topic_prefix = "fs.chmod"
//
//	[[watch]]
//	bus = "files"
//	path = "./src"
//	topic_prefix = "fs"
package manifest
