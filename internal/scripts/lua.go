package scripts

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/Shopify/go-lua"

	"pipeline/internal/property"
)

const luaTargetType = "pipeline.target"

var luaTargetMethods = []lua.RegistryFunction{
	{Name: "path", Function: luaTargetPath},
	{Name: "name", Function: luaTargetName},
	{Name: "get", Function: luaTargetGet},
	{Name: "set", Function: luaTargetSet},
}

// runLua loads path, runs its top level and then calls execute(target).
func runLua(ctx context.Context, path string, target Target) error {
	state := lua.NewState()
	lua.OpenLibraries(state)
	registerLuaTarget(state)

	if err := lua.LoadFile(state, path, ""); err != nil {
		return fmt.Errorf("load lua: %w", err)
	}
	if err := state.ProtectedCall(0, 0, 0); err != nil {
		return fmt.Errorf("run lua: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	state.Global("execute")
	if !state.IsFunction(-1) {
		state.Pop(1)
		return fmt.Errorf("%w: %s", ErrNoEntryPoint, path)
	}
	state.PushUserData(target)
	lua.SetMetaTableNamed(state, luaTargetType)
	if err := state.ProtectedCall(1, 0, 0); err != nil {
		return fmt.Errorf("execute lua: %w", err)
	}
	return nil
}

func registerLuaTarget(state *lua.State) {
	lua.NewMetaTable(state, luaTargetType)
	state.NewTable()
	lua.SetFunctions(state, luaTargetMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)
}

func checkLuaTarget(state *lua.State) Target {
	ud := lua.CheckUserData(state, 1, luaTargetType)
	if target, ok := ud.(Target); ok && target != nil {
		return target
	}
	lua.ArgumentError(state, 1, "target expected")
	return nil
}

func luaTargetPath(state *lua.State) int {
	state.PushString(checkLuaTarget(state).Path())
	return 1
}

func luaTargetName(state *lua.State) int {
	state.PushString(checkLuaTarget(state).Name())
	return 1
}

func luaTargetGet(state *lua.State) int {
	target := checkLuaTarget(state)
	value, ok := target.PropertyValue(lua.CheckString(state, 2))
	if !ok {
		state.PushNil()
		return 1
	}
	pushLuaValue(state, value)
	return 1
}

func luaTargetSet(state *lua.State) int {
	target := checkLuaTarget(state)
	name := lua.CheckString(state, 2)
	if err := target.SetProperty(name, luaToGo(state, 3)); err != nil {
		lua.Errorf(state, "set %s: %s", name, err.Error())
	}
	return 0
}

func pushLuaValue(state *lua.State, value any) {
	switch v := value.(type) {
	case nil:
		state.PushNil()
	case string:
		state.PushString(v)
	case bool:
		state.PushBoolean(v)
	case int:
		state.PushInteger(v)
	case int64:
		state.PushInteger(int(v))
	case float64:
		state.PushNumber(v)
	case []string:
		state.CreateTable(len(v), 0)
		for i, item := range v {
			state.PushString(item)
			state.RawSetInt(-2, i+1)
		}
	case []any:
		state.CreateTable(len(v), 0)
		for i, item := range v {
			pushLuaValue(state, item)
			state.RawSetInt(-2, i+1)
		}
	case map[string]any:
		state.CreateTable(0, len(v))
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			pushLuaValue(state, v[key])
			state.SetField(-2, key)
		}
	case property.CommandMap:
		generic := make(map[string]any, len(v))
		for software, commands := range v {
			inner := make(map[string]any, len(commands))
			for name, list := range commands {
				inner[name] = list
			}
			generic[software] = inner
		}
		pushLuaValue(state, generic)
	default:
		state.PushString(fmt.Sprint(v))
	}
}

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		if math.Mod(value, 1) == 0 {
			return int(value)
		}
		return value
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return luaTableToGo(state, index)
	default:
		return nil
	}
}

// luaTableToGo converts a sequence to []any and anything else to a map keyed
// by the string keys.
func luaTableToGo(state *lua.State, index int) any {
	index = state.AbsIndex(index)
	isArray := true
	maxIndex, count := 0, 0
	state.PushNil()
	for state.Next(index) {
		if isArray {
			if idx, ok := state.ToInteger(-2); ok && state.TypeOf(-2) == lua.TypeNumber && idx > 0 {
				count++
				maxIndex = max(maxIndex, idx)
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}
	if isArray && count > 0 && maxIndex == count {
		out := make([]any, 0, count)
		for i := 1; i <= count; i++ {
			state.RawGetInt(index, i)
			out = append(out, luaToGo(state, -1))
			state.Pop(1)
		}
		return out
	}

	out := map[string]any{}
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			out[key] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return out
}
