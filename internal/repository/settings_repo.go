package repository

// SettingsStore is a small persisted key/value store for adapter state.
type SettingsStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}
