// Package scripting hosts the embedded Lua VM. Spawn-position resolvers are
// Lua functions: Go supplies the spawn context, Lua decides where the next
// entity appears and which way it faces.
package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/mechanica/engine/internal/geom"
	"github.com/mechanica/engine/internal/settings"
)

// Engine wraps a single gopher-lua VM. Single-goroutine access only
// (simulation loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory. Missing subdirectories are skipped.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	for _, sub := range []string{"core", "apply", "resolver"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

func (e *Engine) Close() {
	e.vm.Close()
}

// SpawnContext is the pre-packed data handed to a Lua resolver.
type SpawnContext struct {
	OwnerX    float64
	OwnerY    float64
	OwnerDirX float64
	OwnerDirY float64
	Index     int // slot index within the current burst
	Count     int // burst size
}

// SpawnPoint is a resolved position and initial direction.
type SpawnPoint struct {
	Pos geom.Vec2
	Dir geom.Vec2
}

// ResolveSpawn calls the Lua function resolve_<name>(ctx). The function
// returns a table {x, y, dx, dy}, or nil to decline. Any Lua error logs and
// declines so the caller's fallback chain takes over.
func (e *Engine) ResolveSpawn(name string, ctx SpawnContext) (SpawnPoint, bool) {
	fn := e.vm.GetGlobal("resolve_" + name)
	if fn == lua.LNil {
		return SpawnPoint{}, false
	}

	t := e.vm.NewTable()
	t.RawSetString("owner_x", lua.LNumber(ctx.OwnerX))
	t.RawSetString("owner_y", lua.LNumber(ctx.OwnerY))
	t.RawSetString("owner_dx", lua.LNumber(ctx.OwnerDirX))
	t.RawSetString("owner_dy", lua.LNumber(ctx.OwnerDirY))
	t.RawSetString("index", lua.LNumber(ctx.Index))
	t.RawSetString("count", lua.LNumber(ctx.Count))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua spawn resolver error", zap.String("resolver", name), zap.Error(err))
		return SpawnPoint{}, false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	tbl, ok := result.(*lua.LTable)
	if !ok {
		return SpawnPoint{}, false
	}
	num := func(key string) float64 {
		if v, ok := tbl.RawGetString(key).(lua.LNumber); ok {
			return float64(v)
		}
		return 0
	}
	return SpawnPoint{
		Pos: geom.Vec2{X: num("x"), Y: num("y")},
		Dir: geom.Vec2{X: num("dx"), Y: num("dy")},
	}, true
}

// HasResolver reports whether a Lua resolver with the given name is loaded.
func (e *Engine) HasResolver(name string) bool {
	return e.vm.GetGlobal("resolve_"+name) != lua.LNil
}

// PreprocessSettings runs the Lua hook apply_<implID>(settings) when one is
// loaded. The hook returns a table of key→value replacing the input, or nil
// to keep the settings unchanged. Errors log and leave them untouched.
func (e *Engine) PreprocessSettings(implID string, s map[string]settings.Value) (map[string]settings.Value, bool) {
	fn := e.vm.GetGlobal("apply_" + implID)
	if fn == lua.LNil {
		return nil, false
	}

	t := e.vm.NewTable()
	for k, v := range s {
		t.RawSetString(k, toLua(v))
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua apply hook error", zap.String("impl", implID), zap.Error(err))
		return nil, false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	tbl, ok := result.(*lua.LTable)
	if !ok {
		return nil, false
	}
	out := make(map[string]settings.Value, len(s))
	tbl.ForEach(func(k, v lua.LValue) {
		key, ok := k.(lua.LString)
		if !ok {
			return
		}
		switch tv := v.(type) {
		case lua.LBool:
			out[string(key)] = settings.Bool(bool(tv))
		case lua.LNumber:
			out[string(key)] = settings.Float(float64(tv))
		case lua.LString:
			out[string(key)] = settings.String(string(tv))
		}
	})
	return out, true
}

// toLua maps a settings value onto the closest Lua primitive. Colors and
// vectors cross as their string forms and re-coerce on the way back.
func toLua(v settings.Value) lua.LValue {
	if b, ok := v.AsBool(); ok {
		return lua.LBool(b)
	}
	if n, ok := v.AsInt(); ok {
		return lua.LNumber(n)
	}
	if f, ok := v.AsFloat(); ok {
		return lua.LNumber(f)
	}
	return lua.LString(v.String())
}
