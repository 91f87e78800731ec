// Package presets captures the override state of every domain into named
// snapshots, persists them through a storage.Adapter and replays them later.
package presets
