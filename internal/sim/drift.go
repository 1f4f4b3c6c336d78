package sim

import "math"

// EnergyDrift tracks the largest relative change in energy over a sequence
// of observed states.
type EnergyDrift struct {
	dyn           EnergyComputer
	initialEnergy float64
	currentEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(dyn EnergyComputer) *EnergyDrift {
	return &EnergyDrift{dyn: dyn}
}

func (e *EnergyDrift) Name() string { return "energy_drift" }

// Observe records the energy of x. The first observation is the reference;
// a zero reference energy yields absolute rather than relative drift.
func (e *EnergyDrift) Observe(x State) {
	energy := e.dyn.Energy(x)
	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.currentEnergy = energy
	e.samples++

	drift := math.Abs(energy - e.initialEnergy)
	if e.initialEnergy != 0 {
		drift /= math.Abs(e.initialEnergy)
	}
	if math.IsNaN(drift) {
		drift = math.Inf(1)
	}
	e.maxDrift = math.Max(e.maxDrift, drift)
}

func (e *EnergyDrift) Value() float64 { return e.maxDrift }

func (e *EnergyDrift) Current() float64 { return e.currentEnergy }

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
