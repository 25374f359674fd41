package resp

// ErrObj is the standard error we serialize to JSON.
type ErrObj struct {
	Code   string `json:"error"`
	Detail string `json:"detail"`
}

// Result is the router's output contract.
// If JSON=true, Body is already a serialized JSON string.
// If Err!=nil, the server sends {"error","detail"} with Status.
type Result struct {
	Status  int
	Body    string
	JSON    bool
	Err     *ErrObj
	Headers map[string]string // extra headers (X-Worker-Id, etc.)
}

// WithHeader returns a copy of Result with an extra header set.
func (r Result) WithHeader(k, v string) Result {
	if r.Headers == nil {
		r.Headers = make(map[string]string, 1)
	}
	r.Headers[k] = v
	return r
}

// Constructors, consistent across the tree:

func PlainOK(body string) Result     { return Result{Status: 200, Body: body, JSON: false} }
func JSONOK(json string) Result      { return Result{Status: 200, Body: json, JSON: true} }
func BadReq(code, d string) Result   { return Result{Status: 400, JSON: true, Err: &ErrObj{code, d}} }
func NotFound(code, d string) Result { return Result{Status: 404, JSON: true, Err: &ErrObj{code, d}} }
func IntErr(code, d string) Result   { return Result{Status: 500, JSON: true, Err: &ErrObj{code, d}} }
func Unavail(code, d string) Result  { return Result{Status: 503, JSON: true, Err: &ErrObj{code, d}} }
