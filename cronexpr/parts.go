package cronexpr

func (e *Expression) Minute() []Value { return e.Part(Minute) }

func (e *Expression) SetMinute(value any) error { return e.SetPart(Minute, value) }

func (e *Expression) AddMinute(value any) error { return e.AddPart(Minute, value) }

func (e *Expression) Hour() []Value { return e.Part(Hour) }

func (e *Expression) SetHour(value any) error { return e.SetPart(Hour, value) }

func (e *Expression) AddHour(value any) error { return e.AddPart(Hour, value) }

func (e *Expression) DayOfMonth() []Value { return e.Part(DayOfMonth) }

func (e *Expression) SetDayOfMonth(value any) error { return e.SetPart(DayOfMonth, value) }

func (e *Expression) AddDayOfMonth(value any) error { return e.AddPart(DayOfMonth, value) }

func (e *Expression) Month() []Value { return e.Part(Month) }

func (e *Expression) SetMonth(value any) error { return e.SetPart(Month, value) }

func (e *Expression) AddMonth(value any) error { return e.AddPart(Month, value) }

func (e *Expression) DayOfWeek() []Value { return e.Part(DayOfWeek) }

func (e *Expression) SetDayOfWeek(value any) error { return e.SetPart(DayOfWeek, value) }

func (e *Expression) AddDayOfWeek(value any) error { return e.AddPart(DayOfWeek, value) }
