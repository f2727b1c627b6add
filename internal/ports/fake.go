package ports

import "errors"

// LuxSample is a single scripted light sensor reading. A non-nil Err makes
// the read fail instead.
type LuxSample struct {
	Lux float64
	Err error
}

// FakeLightSensor returns scripted lux values. Each ReadLux consumes the
// next sample; once exhausted it repeats the last one.
type FakeLightSensor struct {
	Samples []LuxSample
	Reads   int
	Closed  bool

	index int
}

func NewFakeLightSensor(samples ...LuxSample) *FakeLightSensor {
	return &FakeLightSensor{Samples: samples}
}

func (f *FakeLightSensor) ReadLux() (float64, error) {
	f.Reads++
	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample.Lux, sample.Err
}

func (f *FakeLightSensor) Close() error {
	f.Closed = true
	return nil
}

// PresenceSample is a single scripted presence reading.
type PresenceSample struct {
	Present bool
	Err     error
}

// FakePresenceSensor returns scripted presence values, repeating the last
// sample once the script runs out.
type FakePresenceSensor struct {
	Samples []PresenceSample
	Reads   int
	Closed  bool

	index int
}

func NewFakePresenceSensor(samples ...PresenceSample) *FakePresenceSensor {
	return &FakePresenceSensor{Samples: samples}
}

func (f *FakePresenceSensor) Read() (bool, error) {
	f.Reads++
	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample.Present, sample.Err
}

func (f *FakePresenceSensor) Close() error {
	f.Closed = true
	return nil
}

// FakeBrightnessSink records every level written to it.
type FakeBrightnessSink struct {
	Levels []int
	SetErr error
	Closed bool
}

func (f *FakeBrightnessSink) SetLevel(level int) error {
	if f.SetErr != nil {
		return f.SetErr
	}
	f.Levels = append(f.Levels, level)
	return nil
}

func (f *FakeBrightnessSink) Close() error {
	f.Closed = true
	return nil
}

// Last returns the most recently written level, or -1 if nothing has been
// written yet.
func (f *FakeBrightnessSink) Last() int {
	if len(f.Levels) == 0 {
		return -1
	}
	return f.Levels[len(f.Levels)-1]
}

// FakeSupplySwitch records every state written to the sensor supply rail.
type FakeSupplySwitch struct {
	On      bool
	History []bool
	SetErr  error
	Closed  bool
}

func (f *FakeSupplySwitch) Set(on bool) error {
	if f.SetErr != nil {
		return f.SetErr
	}
	f.On = on
	f.History = append(f.History, on)
	return nil
}

func (f *FakeSupplySwitch) Close() error {
	f.Closed = true
	return nil
}
