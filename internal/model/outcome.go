package model

// Outcome - результат одного вызова генератора. Закрытое объединение:
// реализуют только Success, UserFailure и SystemFailure.
type Outcome interface {
	Tokens() (input, output int)
	isOutcome()
}

// Success - текст сгенерирован. Пользователь платит.
type Success struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// UserFailure - генератор отверг ввод пользователя. Пользователь платит.
type UserFailure struct {
	Message      string
	InputTokens  int
	OutputTokens int
}

// SystemFailure - сбой генератора или транспорта. Пользователь не платит.
type SystemFailure struct {
	Message      string
	InputTokens  int
	OutputTokens int
}

func (o Success) Tokens() (int, int)       { return o.InputTokens, o.OutputTokens }
func (o UserFailure) Tokens() (int, int)   { return o.InputTokens, o.OutputTokens }
func (o SystemFailure) Tokens() (int, int) { return o.InputTokens, o.OutputTokens }

func (Success) isOutcome()       {}
func (UserFailure) isOutcome()   {}
func (SystemFailure) isOutcome() {}

// MatchOutcome вызывает обработчик для конкретного вида исхода.
// Все три обработчика обязательны, поэтому новый вид не пройдёт компиляцию незамеченным.
// nil, в том числе типизированный nil-указатель, выходит в SystemFailure.
func MatchOutcome[R any](
	o Outcome,
	onSuccess func(Success) R,
	onUserFailure func(UserFailure) R,
	onSystemFailure func(SystemFailure) R,
) R {
	switch v := o.(type) {
	case Success:
		return onSuccess(v)
	case *Success:
		if v != nil {
			return onSuccess(*v)
		}
	case UserFailure:
		return onUserFailure(v)
	case *UserFailure:
		if v != nil {
			return onUserFailure(*v)
		}
	case SystemFailure:
		return onSystemFailure(v)
	case *SystemFailure:
		if v != nil {
			return onSystemFailure(*v)
		}
	}
	return onSystemFailure(SystemFailure{Message: "unknown outcome"})
}

// Normalize приводит исход к значению. Указатели разыменовываются, nil становится SystemFailure.
func Normalize(o Outcome) Outcome {
	return MatchOutcome(o,
		func(s Success) Outcome { return s },
		func(u UserFailure) Outcome { return u },
		func(s SystemFailure) Outcome { return s },
	)
}

// OutcomeKind - имя вида исхода для логов и метрик.
func OutcomeKind(o Outcome) string {
	return MatchOutcome(o,
		func(Success) string { return "success" },
		func(UserFailure) string { return "user_failure" },
		func(SystemFailure) string { return "system_failure" },
	)
}
