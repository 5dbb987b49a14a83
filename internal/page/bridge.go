package page

import (
	"fmt"
	"strings"
)

// bridgeJS installs window.__mudra. It keeps a handle table of weak element
// references so Go can refer to elements across calls without keeping them
// alive, and it draws the gesture cursor.
const bridgeJS = `(() => {
  if (window.__mudra) return;

  const ACTIONABLE = 'a[href],button,input,select,textarea,label,summary,' +
    '[role="button"],[role="link"],[role="checkbox"],[role="tab"],[role="menuitem"],' +
    '[onclick],[tabindex]:not([tabindex="-1"])';

  const refs = new Map();
  const ids = new WeakMap();
  let next = 0;

  const handleOf = (el) => {
    let h = ids.get(el);
    if (!h) {
      h = 'm' + (++next);
      ids.set(el, h);
      refs.set(h, new WeakRef(el));
    }
    return h;
  };

  const resolve = (h) => {
    const ref = refs.get(h);
    const el = ref && ref.deref();
    if (!el || !el.isConnected) {
      refs.delete(h);
      return null;
    }
    return el;
  };

  let cursor = null;
  const cursorEl = () => {
    if (cursor && cursor.isConnected) return cursor;
    cursor = document.createElement('div');
    cursor.setAttribute('data-mudra-cursor', '');
    Object.assign(cursor.style, {
      position: 'fixed', left: '0', top: '0', width: '22px', height: '22px',
      margin: '-11px 0 0 -11px', borderRadius: '50%', pointerEvents: 'none',
      zIndex: '2147483647', border: '2px solid rgba(255,255,255,0.9)',
      boxShadow: '0 0 6px rgba(0,0,0,0.5)', transition: 'background 80ms linear',
      display: 'none',
    });
    (document.body || document.documentElement).appendChild(cursor);
    return cursor;
  };

  const COLORS = {
    point: 'rgba(80,160,255,0.6)', click: 'rgba(255,200,40,0.8)',
    grab: 'rgba(60,220,120,0.7)', scroll: 'rgba(220,90,220,0.7)',
  };

  window.__mudra = {
    viewport() {
      return { width: window.innerWidth, height: window.innerHeight };
    },

    hitTest(x, y) {
      const el = document.elementFromPoint(x, y);
      if (!el) return { handle: '', actionable: false };
      return { handle: handleOf(el), actionable: !!el.closest(ACTIONABLE) };
    },

    exists(h) {
      return resolve(h) !== null;
    },

    dispatch(ev) {
      let target;
      switch (ev.target.kind) {
        case 'window': target = window; break;
        case 'document': target = document; break;
        default:
          target = resolve(ev.target.handle);
          if (!target) return false;
      }
      const init = {
        bubbles: ev.bubbles, cancelable: ev.cancelable, composed: true, view: window,
        clientX: ev.x, clientY: ev.y,
        screenX: ev.x + window.screenX, screenY: ev.y + window.screenY,
        button: ev.button, buttons: ev.buttons,
      };
      let e;
      if (ev.type === 'wheel') {
        e = new WheelEvent('wheel', Object.assign(init, { deltaY: ev.deltaY || 0, deltaMode: 0 }));
      } else if (ev.type.startsWith('pointer')) {
        e = new PointerEvent(ev.type, Object.assign(init, {
          pointerId: ev.pointerId, pointerType: ev.pointerType, isPrimary: ev.isPrimary,
          width: 1, height: 1, pressure: ev.buttons ? 0.5 : 0,
        }));
      } else {
        e = new MouseEvent(ev.type, init);
      }
      const proceed = target.dispatchEvent(e);
      // Untrusted wheel events have no default action.
      if (ev.type === 'wheel' && proceed) window.scrollBy(0, ev.deltaY || 0);
      return true;
    },

    capture(h, id) {
      const el = resolve(h);
      if (!el) return false;
      el.setPointerCapture(id);
      return true;
    },

    release(h, id) {
      const el = resolve(h);
      if (!el) return false;
      if (el.hasPointerCapture(id)) el.releasePointerCapture(id);
      return true;
    },

    cursor(c) {
      const el = cursorEl();
      if (!c.visible) {
        el.style.display = 'none';
        return true;
      }
      el.style.display = 'block';
      el.style.transform = 'translate(' + c.x + 'px,' + c.y + 'px)';
      el.style.background = COLORS[c.gesture] || 'rgba(255,255,255,0.35)';
      return true;
    },
  };
})();`

// expression builds a bridge call. The result is always an object of the
// form {missing, error, value} so a page without the bridge (or a throwing
// call) is distinguishable from a legitimate falsy value. args must already
// be JSON-encoded.
func expression(method string, args ...[]byte) string {
	encoded := make([]string, len(args))
	for i, a := range args {
		encoded[i] = string(a)
	}
	return fmt.Sprintf(`(() => {
  const m = window.__mudra;
  if (!m) return { missing: true };
  try {
    return { value: m.%s(%s) };
  } catch (e) {
    return { error: String(e && e.message || e) };
  }
})()`, method, strings.Join(encoded, ", "))
}
