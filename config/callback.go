package config

// ConfigCallback collects functions to be invoked once the global
// configuration has been parsed. Packages register callbacks in their init
// functions; main triggers them with Call after BuildConfig succeeds.
type ConfigCallback[T any] struct {
	callbacks []func(T)
}

func (ccb *ConfigCallback[T]) AddCallback(f func(T)) {
	ccb.callbacks = append(ccb.callbacks, f)
}

func (ccb *ConfigCallback[T]) Call(obj T) {
	for _, f := range ccb.callbacks {
		f(obj)
	}
}
