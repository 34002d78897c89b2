package site

// revealCDN is the reveal.js distribution the page loads.
const revealCDN = "https://cdn.jsdelivr.net/npm/reveal.js@4.6.1"

// chartCDN is the Chart.js build the page loads.
const chartCDN = "https://cdn.jsdelivr.net/npm/chart.js@4.4.0/dist/chart.umd.min.js"

// pageTemplate is the Go html/template for the presentation page.
const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Title}}</title>
  {{with .Author}}<meta name="author" content="{{.}}">{{end}}
  <link rel="stylesheet" href="{{.RevealCDN}}/dist/reset.css">
  <link rel="stylesheet" href="{{.RevealCDN}}/dist/reveal.css">
  <link rel="stylesheet" href="{{.RevealCDN}}/dist/theme/black.css">
  <link rel="stylesheet" href="{{.RevealCDN}}/plugin/highlight/monokai.css">
  <style>{{.Stylesheet}}</style>
</head>
<body>
  <div class="reveal">
    <div class="slides">
{{- range .Slides}}
      <section id="{{.ID}}" data-slide="{{.ID}}"{{with .Class}} class="{{.}}"{{end}}>
        {{with .Title}}<h2>{{.}}</h2>{{end}}
        {{.Body}}
        {{- range .Diagrams}}
        <div class="deck-viz"><svg id="{{.Container}}" width="100%" height="{{.Height}}"></svg></div>
        {{- end}}
        {{- range .Charts}}
        <div class="deck-chart-wrap"><canvas id="{{.Canvas}}"></canvas></div>
        {{- end}}
        {{with .Notes}}<aside class="notes">{{.}}</aside>{{end}}
      </section>
{{- end}}
    </div>
  </div>
  <script id="deck-config" type="application/json"></script>
  <script id="deck-fragments" type="application/json"></script>
  <script src="{{.RevealCDN}}/dist/reveal.js"></script>
{{- range .PluginScripts}}
  <script src="{{.}}"></script>
{{- end}}
  <script src="{{.ChartCDN}}"></script>
  <script src="https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.min.js"></script>
  <script>{{.ClientJS}}</script>
</body>
</html>`

// deckCSS styles the page around the rendered visualizations.
const deckCSS = `
.reveal { font-family: "Inter", "Segoe UI", sans-serif; }
.reveal h2 { color: #fff; text-transform: none; }
.reveal section.title-slide h2 { font-size: 2.6em; }
.reveal .deck-viz { width: 100%; margin: 0.5em auto; }
.reveal .deck-viz svg { display: block; max-width: 100%; overflow: visible; }
.reveal .deck-chart-wrap { position: relative; height: 560px; width: 90%; margin: 0 auto; }
.reveal .mermaid { background: transparent; font-size: 0.6em; }
`

// clientJS initializes reveal.js and applies rendered fragments. In live
// mode fragments arrive over the websocket; otherwise they come from the
// table embedded at build time.
const clientJS = `(function() {
  "use strict";

  var config = JSON.parse(document.getElementById("deck-config").textContent || "{}");
  var table = {};
  var tableEl = document.getElementById("deck-fragments");
  if (tableEl && tableEl.textContent.trim() !== "") {
    JSON.parse(tableEl.textContent).forEach(function(r) { table[r.slide] = r; });
  }
  var charts = {};
  var socket = null;
  var pending = null;

  function whenReady(test, fn, interval) {
    if (test()) { fn(); return; }
    setTimeout(function() { whenReady(test, fn, interval); }, interval);
  }

  function bindChart(b) {
    var canvas = document.getElementById(b.canvas);
    if (!canvas) return;
    if (charts[b.canvas]) {
      charts[b.canvas].destroy();
      delete charts[b.canvas];
    }
    charts[b.canvas] = new Chart(canvas.getContext("2d"), b.config);
  }

  function apply(report) {
    (report.fragments || []).forEach(function(f) {
      whenReady(function() { return document.getElementById(f.container) !== null; }, function() {
        var el = document.getElementById(f.container);
        if (f.view_box) el.setAttribute("viewBox", f.view_box);
        el.classList.add("deck-diagram");
        el.innerHTML = f.html;
      }, config.gateMs || 100);
    });
    (report.charts || []).forEach(function(b) {
      whenReady(function() { return typeof Chart !== "undefined"; }, function() {
        bindChart(b);
      }, config.chartRetryMs || 500);
    });
  }

  function send(type, slide) {
    var msg = JSON.stringify({ type: type, slide: slide });
    if (socket && socket.readyState === WebSocket.OPEN) {
      socket.send(msg);
    } else {
      pending = msg;
    }
  }

  function show(type, event) {
    var slide = event.currentSlide ? event.currentSlide.id : "";
    if (config.live) {
      send(type, slide);
    } else if (table[slide]) {
      apply(table[slide]);
    }
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    socket = new WebSocket(proto + location.host + config.socket);
    socket.onopen = function() {
      if (pending) { socket.send(pending); pending = null; }
    };
    socket.onmessage = function(e) {
      var msg = JSON.parse(e.data);
      if (msg.type === "render") {
        apply(msg);
      } else if (msg.type === "reload") {
        location.reload();
      } else if (msg.type === "error") {
        console.warn("deckviz:", msg.content);
      }
    };
    socket.onclose = function() {
      setTimeout(connect, 1000);
    };
  }

  if (config.live) connect();

  if (typeof mermaid !== "undefined") {
    mermaid.initialize({ startOnLoad: true, theme: "dark", securityLevel: "loose" });
  }

  var plugins = (config.plugins || []).map(function(name) { return window[name]; })
    .filter(function(p) { return !!p; });
  var options = Object.assign({}, config.reveal || {}, { plugins: plugins });

  Reveal.on("ready", function(e) { show("ready", e); });
  Reveal.on("slidechanged", function(e) { show("slidechanged", e); });
  Reveal.initialize(options);
})();
`
