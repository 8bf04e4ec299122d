package tool

import (
	"context"
	"encoding"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"time"

	"github.com/casualjim/omnichat/pkg/slogx"
	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

var errorType = reflect.TypeFor[error]()

// Call decodes the model supplied arguments, invokes the function and renders
// its result as the text sent back to the model.
func (td Definition) Call(ctx context.Context, arguments json.RawMessage) (string, error) {
	if len(arguments) == 0 {
		arguments = json.RawMessage(`{}`)
	}
	if !gjson.ValidBytes(arguments) {
		return "", fmt.Errorf("tool %s: arguments are not valid JSON", td.Name)
	}

	if h, ok := td.Function.(Handler); ok {
		return h(ctx, arguments)
	}

	args, err := td.buildArgList(ctx, arguments)
	if err != nil {
		return "", err
	}
	return callFunction(td.Function, args)
}

func (td Definition) buildArgList(ctx context.Context, arguments json.RawMessage) ([]reflect.Value, error) {
	typ := reflect.TypeOf(td.Function)
	callArgs := make([]reflect.Value, typ.NumIn())

	if st, ok := td.structArgs(); ok {
		for i := range callArgs {
			if typ.In(i) == contextType {
				callArgs[i] = reflect.ValueOf(ctx)
				continue
			}
			v, err := decodeArg(arguments, st)
			if err != nil {
				return nil, fmt.Errorf("tool %s: %w", td.Name, err)
			}
			callArgs[i] = v
		}
		return callArgs, nil
	}

	parsed := gjson.ParseBytes(arguments)
	param := 0
	for i := range callArgs {
		paramType := typ.In(i)
		if paramType == contextType {
			callArgs[i] = reflect.ValueOf(ctx)
			continue
		}
		name := td.paramName(param)
		param++

		val := parsed.Get(gjson.Escape(name))
		if !val.Exists() {
			callArgs[i] = reflect.Zero(paramType)
			continue
		}
		v, err := decodeArg([]byte(val.Raw), paramType)
		if err != nil {
			return nil, fmt.Errorf("tool %s: argument %s: %w", td.Name, name, err)
		}
		callArgs[i] = v
	}
	return callArgs, nil
}

func decodeArg(raw []byte, t reflect.Type) (reflect.Value, error) {
	ptr := reflect.New(t)
	if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return ptr.Elem(), nil
}

func callFunction(fn any, args []reflect.Value) (string, error) {
	results := reflect.ValueOf(fn).Call(args)
	if len(results) == 2 && !results[1].IsNil() {
		return "", results[1].Interface().(error)
	}

	res := results[0]
	if !res.IsValid() || ((res.Kind() == reflect.Pointer || res.Kind() == reflect.Interface) && res.IsNil()) {
		return "", nil
	}

	switch vtpe := res.Interface().(type) {
	case string:
		return vtpe, nil
	case error:
		return "", vtpe
	case time.Time:
		return vtpe.Format(time.RFC3339), nil
	case int, int8, int16, int32, int64:
		return strconv.FormatInt(reflect.ValueOf(vtpe).Int(), 10), nil
	case uint, uint8, uint16, uint32, uint64:
		return strconv.FormatUint(reflect.ValueOf(vtpe).Uint(), 10), nil
	case float32, float64:
		return strconv.FormatFloat(reflect.ValueOf(vtpe).Float(), 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(vtpe), nil
	case encoding.TextMarshaler:
		b, err := vtpe.MarshalText()
		if err != nil {
			slog.Error("Error marshalling function return", slogx.Error(err))
			return "", err
		}
		return string(b), nil
	case fmt.Stringer:
		return vtpe.String(), nil
	default:
		b, err := json.Marshal(vtpe)
		if err != nil {
			slog.Error("Error marshalling function return", slogx.Error(err))
			return "", err
		}
		return string(b), nil
	}
}
