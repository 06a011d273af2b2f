// Package config loads the match rule set from disk.
//
// Rules are stored as a single JSON file:
//
//	{
//	  "flip_back_delay_ms": 1000,
//	  "board_sizes": [12, 16, 24, 36],
//	  "default_board_size": 16
//	}
//
// Usage:
//
//	rules, err := config.Load("rules.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// An empty path yields the built-in defaults; every loaded file is
// validated before use.
package config
