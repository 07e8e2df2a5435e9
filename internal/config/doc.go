// Package config provides configuration parsing for dragula projects.
//
// The configuration is stored in dragula.json (or dragula.toml) at the
// project root. This package handles loading, saving, and validating it.
//
// # Configuration File Structure
//
//	{
//	  "service": {"name": "kanban", "logging": true, "logLevel": "debug"},
//	  "server": {
//	    "port": 7420,
//	    "frameInterval": "16ms",
//	    "transitionFrames": 2
//	  },
//	  "metrics": {"enabled": true},
//	  "snapshot": {"driver": "disk", "dir": "snapshots", "onClose": true},
//	  "bags": [
//	    {
//	      "name": "tasks",
//	      "revertOnSpill": true,
//	      "containers": [
//	        {"name": "todo", "items": [{"id": "1", "title": "Write"}]},
//	        {"name": "done"}
//	      ]
//	    }
//	  ]
//	}
//
// The same file in TOML uses snake_case keys:
//
//	[server]
//	frame_interval = "16ms"
//
//	[[bags]]
//	name = "tasks"
//	remove_on_spill = true
//
//	[[bags.containers]]
//	name = "todo"
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Address())
package config
