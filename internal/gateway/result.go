package gateway

// Result is the normalised outcome of one gateway exchange. Success is
// decided by the body's discriminator, not HTTP status alone: the gateway
// can answer 200 with an embedded error for some operations and 4xx with a
// structured error for others. Transport and parse failures normalise into
// the same shape so nothing below the action facade has to throw.
type Result struct {
	Succeeded   bool
	Status      int
	Data        map[string]any
	ErrorDetail any
}

// ErrorRecord renders the failure as the free-form error record stored on
// the session.
func (r Result) ErrorRecord() map[string]any {
	if r.Succeeded {
		return nil
	}
	switch detail := r.ErrorDetail.(type) {
	case map[string]any:
		return detail
	case nil:
		return map[string]any{"message": "gateway call failed"}
	default:
		return map[string]any{"errors": detail}
	}
}

func failure(status int, detail any) Result {
	return Result{Status: status, ErrorDetail: detail}
}

func success(status int, data map[string]any) Result {
	return Result{Succeeded: true, Status: status, Data: data}
}
