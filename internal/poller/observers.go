package poller

// JobObservers fans a snapshot out to every non-nil observer in order.
func JobObservers(obs ...JobObserver) JobObserver {
	return func(s Snapshot) {
		for _, o := range obs {
			if o != nil {
				o(s)
			}
		}
	}
}

// FileObservers fans a snapshot out to every non-nil observer in order.
func FileObservers(obs ...FileObserver) FileObserver {
	return func(fs FileSnapshot) {
		for _, o := range obs {
			if o != nil {
				o(fs)
			}
		}
	}
}
