package server

import (
	"fmt"
	"sort"
	"strings"
)

// commandHandler is one entry in the command table. Args are the frame
// elements after the command word.
type commandHandler func(s *Server, args []Value) Value

// commandTable routes command words to handlers, the same shape as the
// teacher's processCommand switch in protocol.go, re-keyed on the text
// command word spec.md §4.2 dispatches on instead of a binary opcode.
var commandTable = map[string]commandHandler{
	"GET":     cmdGet,
	"SET":     cmdSet,
	"DELETE":  cmdDelete,
	"FLUSH":   cmdFlush,
	"MGET":    cmdMGet,
	"MSET":    cmdMSet,
	"LPUSH":   cmdLPush,
	"RPUSH":   cmdRPush,
	"LPOP":    cmdLPop,
	"RPOP":    cmdRPop,
	"LLEN":    cmdLLen,
	"BLPOP":   cmdBLPop,
	"BRPOP":   cmdBRPop,
	"EXPIRE":  cmdExpire,
	"TTL":     cmdTTL,
	"PERSIST": cmdPersist,
	"INFO":    cmdInfo,
}

// Dispatch parses the outermost array frame and routes it to a handler,
// per spec.md §4.2. Unknown commands, wrong arity, and bad argument
// shapes turn into Error replies rather than Go errors — the connection
// always continues. A handler panic (InternalError in spec.md §7) is
// recovered and reported the same way.
func (s *Server) Dispatch(frame Value) (reply Value) {
	defer func() {
		if r := recover(); r != nil {
			reply = ErrorValue(fmt.Sprintf("Unknown error: %v", r))
		}
	}()

	if frame.Kind != KindList {
		return ErrorValue("Wrong format: command must be an array")
	}
	args := frame.AsListSlice()
	if len(args) == 0 {
		return ErrorValue("Wrong format: missing command")
	}
	if args[0].Kind != KindStr {
		return ErrorValue("Wrong format: command name must be a string")
	}

	name := args[0].str
	handler, ok := commandTable[name]
	if !ok {
		return ErrorValue("Unrecognized command: " + name)
	}

	s.incrementStat(statTotalOps)
	return handler(s, args[1:])
}

func cmdGet(s *Server, args []Value) Value {
	if len(args) != 1 || args[0].Kind != KindStr {
		return ErrorValue("Wrong format: GET key")
	}
	s.incrementStat(statGetOps)

	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[args[0].str]
	if !ok {
		return NullValue()
	}
	if v.Kind == KindList {
		return ListValue(v.AsListSlice())
	}
	return v
}

func cmdSet(s *Server, args []Value) Value {
	if len(args) != 2 || args[0].Kind != KindStr {
		return ErrorValue("Wrong format: SET key value")
	}
	s.incrementStat(statSetOps)

	s.mu.Lock()
	s.data[args[0].str] = args[1]
	s.mu.Unlock()
	return IntValue(1)
}

func cmdDelete(s *Server, args []Value) Value {
	if len(args) != 1 || args[0].Kind != KindStr {
		return ErrorValue("Wrong format: DELETE key")
	}
	key := args[0].str

	s.mu.Lock()
	_, existed := s.data[key]
	delete(s.data, key)
	delete(s.ttl, key)
	s.mu.Unlock()

	if !existed {
		return IntValue(0)
	}
	s.incrementStat(statDelOps)
	return IntValue(1)
}

func cmdFlush(s *Server, args []Value) Value {
	if len(args) != 0 {
		return ErrorValue("Wrong format: FLUSH takes no arguments")
	}

	s.mu.Lock()
	n := len(s.data)
	s.data = make(map[string]Value)
	s.ttl = make(map[string]int64)
	s.mu.Unlock()

	return IntValue(int64(n))
}

func cmdMGet(s *Server, args []Value) Value {
	if len(args) == 0 {
		return ErrorValue("Wrong format: MGET key [key ...]")
	}
	for _, a := range args {
		if a.Kind != KindStr {
			return ErrorValue("Wrong format: MGET keys must be strings")
		}
	}

	s.mu.Lock()
	results := make([]Value, len(args))
	for i, a := range args {
		if v, ok := s.data[a.str]; ok && v.Kind == KindList {
			results[i] = ListValue(v.AsListSlice())
		} else if ok {
			results[i] = v
		} else {
			results[i] = NullValue()
		}
	}
	s.mu.Unlock()

	return ListValue(results)
}

func cmdMSet(s *Server, args []Value) Value {
	if len(args) == 0 || len(args)%2 != 0 {
		return ErrorValue("Wrong format: MSET requires an even number of key/value arguments")
	}
	for i := 0; i < len(args); i += 2 {
		if args[i].Kind != KindStr {
			return ErrorValue("Wrong format: MSET keys must be strings")
		}
	}

	s.mu.Lock()
	pairs := 0
	for i := 0; i < len(args); i += 2 {
		s.data[args[i].str] = args[i+1]
		pairs++
	}
	s.mu.Unlock()

	return IntValue(int64(pairs))
}

func cmdLPush(s *Server, args []Value) Value { return s.listPush(args, true) }
func cmdRPush(s *Server, args []Value) Value { return s.listPush(args, false) }

// listPush implements LPUSH/RPUSH. Multiple values are inserted one at a
// time in argument order, so for LPUSH the last argument ends up closest
// to the head (spec.md §4.2's tie-break).
func (s *Server) listPush(args []Value, left bool) Value {
	if len(args) < 2 || args[0].Kind != KindStr {
		return ErrorValue("Wrong format: PUSH key value [value ...]")
	}
	key := args[0].str

	s.mu.Lock()
	v, ok := s.data[key]
	var list *List
	if !ok {
		list = NewList()
		s.data[key] = listBacked(list)
	} else if v.Kind != KindList {
		s.mu.Unlock()
		return ErrorValue(fmt.Sprintf("Wrong format: %s does not hold a list", key))
	} else {
		list = v.listStruct()
	}

	for _, item := range args[1:] {
		if left {
			list.LeftPush(item)
		} else {
			list.RightPush(item)
		}
	}
	n := list.Len()
	s.mu.Unlock()

	s.wakeOne(key)
	return IntValue(int64(n))
}

func cmdLPop(s *Server, args []Value) Value { return s.listPop(args, true) }
func cmdRPop(s *Server, args []Value) Value { return s.listPop(args, false) }

func (s *Server) listPop(args []Value, left bool) Value {
	if len(args) != 1 || args[0].Kind != KindStr {
		return ErrorValue("Wrong format: POP key")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.popLocked(args[0].str, left)
}

// popLocked requires s.mu held by the caller. It returns Null for a
// missing key, a non-list value, or an empty list — callers can't tell
// those apart from the reply alone, a known limitation spec.md §4.2
// documents explicitly.
func (s *Server) popLocked(key string, left bool) Value {
	v, ok := s.data[key]
	if !ok || v.Kind != KindList {
		return NullValue()
	}
	var (
		val Value
		got bool
	)
	if left {
		val, got = v.listStruct().LeftPop()
	} else {
		val, got = v.listStruct().RightPop()
	}
	if !got {
		return NullValue()
	}
	return val
}

func cmdLLen(s *Server, args []Value) Value {
	if len(args) != 1 || args[0].Kind != KindStr {
		return ErrorValue("Wrong format: LLEN key")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[args[0].str]
	if !ok || v.Kind != KindList {
		return NullValue()
	}
	return IntValue(int64(v.listStruct().Len()))
}

func cmdExpire(s *Server, args []Value) Value {
	if len(args) != 2 || args[0].Kind != KindStr || args[1].Kind != KindInt {
		return ErrorValue("Wrong format: EXPIRE key seconds")
	}
	key := args[0].str
	t := args[1].num

	s.mu.Lock()
	s.ttl[key] = t
	s.mu.Unlock()

	return IntValue(t)
}

func cmdTTL(s *Server, args []Value) Value {
	if len(args) != 1 || args[0].Kind != KindStr {
		return ErrorValue("Wrong format: TTL key")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.ttl[args[0].str]
	if !ok {
		return IntValue(-1)
	}
	return IntValue(t)
}

func cmdPersist(s *Server, args []Value) Value {
	if len(args) != 1 || args[0].Kind != KindStr {
		return ErrorValue("Wrong format: PERSIST key")
	}
	s.mu.Lock()
	delete(s.ttl, args[0].str)
	s.mu.Unlock()
	return NullValue()
}

// cmdInfo returns the key/type/size summary spec.md §4.2 describes,
// adapted from original_source/protocol.py's Server.info.
func cmdInfo(s *Server, args []Value) Value {
	if len(args) != 0 {
		return ErrorValue("Wrong format: INFO takes no arguments")
	}

	s.mu.Lock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("key, type, size\n")
	for _, k := range keys {
		v := s.data[k]
		fmt.Fprintf(&b, "%s, %s, %d\n", k, v.Kind, v.approxSize())
	}
	s.mu.Unlock()

	return StrValue(b.String())
}
