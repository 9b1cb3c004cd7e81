package envelope

// User properties and the system context are independent of the body kind.

// PropertyNames returns the user property names in insertion order
func (e *Envelope) PropertyNames() []string {
	return e.properties.keys()
}

// GetProperty returns a user property
func (e *Envelope) GetProperty(name string) (interface{}, bool) {
	return e.properties.get(name)
}

// SetProperty sets a user property. nil is not a valid property value.
func (e *Envelope) SetProperty(name string, v interface{}) error {
	if err := e.mutable("SetProperty"); err != nil {
		return err
	}
	return e.properties.set("SetProperty", name, v)
}

// RemoveProperty deletes a user property and reports whether it existed
func (e *Envelope) RemoveProperty(name string) (bool, error) {
	if err := e.mutable("RemoveProperty"); err != nil {
		return false, err
	}
	return e.properties.remove(name), nil
}

// ClearProperties deletes every user property
func (e *Envelope) ClearProperties() error {
	if err := e.mutable("ClearProperties"); err != nil {
		return err
	}
	e.properties.clear()
	return nil
}

// GetBoolProperty converts a user property to bool
func (e *Envelope) GetBoolProperty(name string) (bool, error) {
	return mapGet(&e.properties, "GetBoolProperty", name, toBool)
}

// GetInt8Property converts a user property to int8
func (e *Envelope) GetInt8Property(name string) (int8, error) {
	return mapGet(&e.properties, "GetInt8Property", name, toInt8)
}

// GetInt16Property converts a user property to int16
func (e *Envelope) GetInt16Property(name string) (int16, error) {
	return mapGet(&e.properties, "GetInt16Property", name, toInt16)
}

// GetInt32Property converts a user property to int32
func (e *Envelope) GetInt32Property(name string) (int32, error) {
	return mapGet(&e.properties, "GetInt32Property", name, toInt32)
}

// GetInt64Property converts a user property to int64
func (e *Envelope) GetInt64Property(name string) (int64, error) {
	return mapGet(&e.properties, "GetInt64Property", name, toInt64)
}

// GetFloat32Property converts a user property to float32
func (e *Envelope) GetFloat32Property(name string) (float32, error) {
	return mapGet(&e.properties, "GetFloat32Property", name, toFloat32)
}

// GetFloat64Property converts a user property to float64
func (e *Envelope) GetFloat64Property(name string) (float64, error) {
	return mapGet(&e.properties, "GetFloat64Property", name, toFloat64)
}

// GetStringProperty converts a user property to string
func (e *Envelope) GetStringProperty(name string) (string, error) {
	return mapGet(&e.properties, "GetStringProperty", name, toString)
}

// SystemContextNames returns the system context keys in insertion order
func (e *Envelope) SystemContextNames() []string {
	return e.context.keys()
}

// GetSystemContext returns a system context value
func (e *Envelope) GetSystemContext(name string) (interface{}, bool) {
	return e.context.get(name)
}

// SetSystemContext sets a system context value. nil values are kept.
func (e *Envelope) SetSystemContext(name string, v interface{}) error {
	if err := e.mutable("SetSystemContext"); err != nil {
		return err
	}
	e.context.allowNil = true
	return e.context.set("SetSystemContext", name, v)
}

// ClearSystemContext deletes every system context value
func (e *Envelope) ClearSystemContext() error {
	if err := e.mutable("ClearSystemContext"); err != nil {
		return err
	}
	e.context.clear()
	return nil
}
