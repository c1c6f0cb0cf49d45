package model

// Run advances every chain by niter iterations (spec §5): for each
// iteration, every sampler updates (in the fixed order established at
// Initialize), then every attached monitor observes the resulting
// state. Metropolis-family rejections never surface as errors (they
// roll back internally); only a genuine Update failure is fatal.
func (m *Model) Run(niter int) error {
	if !m.initialized {
		return newError(Logic, "model", "", ErrNotInitialized)
	}

	for mon := range m.monitors {
		m.monitors[mon].Reserve(niter)
	}

	for i := 0; i < niter; i++ {
		for _, s := range m.samplers {
			if err := s.Update(m.rngs); err != nil {
				return newError(Numerical, "model", s.Name(), err)
			}
		}
		for name, mon := range m.monitors {
			if err := mon.Update(m.graph, m.arenaV); err != nil {
				return newError(Logic, "model", name, err)
			}
		}
	}

	for _, s := range m.samplers {
		for c := 0; c < s.NumChains(); c++ {
			meth, err := s.Method(c)
			if err != nil {
				continue
			}
			if meth.IsAdaptive() && meth.CheckAdaptation() {
				meth.AdaptOff()
				m.cfg.logger.Info().Str("sampler", s.Name()).Int("chain", c).Msg("adaptation converged, freezing")
			}
		}
	}

	return nil
}
