package readiness

// InstrumentationScript is installed via the browser's "on new document"
// hook before every navigation. It must run before any page script so the
// DOM mutation observer never misses early paint activity.
const InstrumentationScript = `(() => {
  window.__TO_HTML = true;
  window.__lastDomChange = Date.now();
  const attach = () => {
    if (!document.documentElement) {
      requestAnimationFrame(attach);
      return;
    }
    const observer = new MutationObserver(() => {
      window.__lastDomChange = Date.now();
    });
    observer.observe(document.documentElement, {
      childList: true,
      subtree: true,
      attributes: true,
      characterData: true,
    });
  };
  attach();
})();`
