package main

import "html/template"

const pageStyle = `
    :root { --bg:#0b1224; --panel:#0f172a; --accent:#38bdf8; --muted:#94a3b8; --line:rgba(255,255,255,0.1); --ok:#48bb78; --bad:#f56565; --info:#4299e1; }
    body { margin:0; font-family: "Space Grotesk", "Segoe UI", sans-serif; background:
      radial-gradient(circle at 10% 20%, rgba(56,189,248,0.16), transparent 40%),
      radial-gradient(circle at 90% 0%, rgba(14,165,233,0.12), transparent 35%),
      var(--bg);
      color:#e2e8f0; min-height:100vh; padding:32px; box-sizing:border-box; }
    h1 { margin:0 0 6px; font-size:28px; color:var(--accent); }
    h2 { margin:0 0 12px; font-size:13px; letter-spacing:0.3px; text-transform:uppercase; color:var(--muted); }
    p { margin:6px 0; color:var(--muted); line-height:1.5; }
    .panel { border:1px solid var(--line); border-radius:16px; padding:16px; background:rgba(2,6,23,0.75); }
    form { display:grid; gap:12px; }
    label { font-size:12px; color:var(--muted); letter-spacing:0.3px; text-transform:uppercase; }
    input, textarea { width:100%; box-sizing:border-box; background:#0b1224; border:1px solid var(--line); color:#e2e8f0; border-radius:10px; padding:10px 12px; font-size:14px; }
    button, .btn-primary { border:0; border-radius:10px; padding:10px 14px; font-weight:600; background:var(--accent); color:#062238; cursor:pointer; text-decoration:none; display:inline-block; }
`

var loginTemplate = template.Must(template.New("login").Parse(`<!doctype html>
<html lang="{{.T.Lang}}">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>pterodash</title>
  <style>` + pageStyle + `
    body { display:flex; align-items:center; justify-content:center; }
    .card { background:linear-gradient(160deg, rgba(15,23,42,0.96), rgba(2,6,23,0.96)); border:1px solid var(--line); border-radius:18px; padding:36px 40px; max-width:520px; width:100%; box-shadow:0 24px 70px rgba(0,0,0,0.4); }
    .error { border:1px solid var(--bad); color:#fecaca; border-radius:10px; padding:10px 12px; margin-top:12px; }
  </style>
</head>
<body>
  <div class="card">
    <h1>pterodash</h1>
    {{if .Error}}<div class="error">{{.Error}}</div>{{end}}
    <form method="post" action="/login">
      <div>
        <label for="username">{{.T.Username}}</label>
        <input id="username" name="username" autocomplete="username" required>
      </div>
      <div>
        <label for="password">{{.T.Password}}</label>
        <input id="password" name="password" type="password" autocomplete="current-password" required>
      </div>
      <button type="submit">{{.T.SignIn}}</button>
    </form>
  </div>
</body>
</html>
`))

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!doctype html>
<html lang="{{.T.Lang}}">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>pterodash</title>
  <style>` + pageStyle + `
    .topbar { display:flex; align-items:center; justify-content:space-between; gap:12px; flex-wrap:wrap; margin-bottom:18px; }
    .layout { display:grid; gap:18px; grid-template-columns: 340px 1fr; }
    .side { display:grid; gap:18px; align-content:start; }
    .server-grid { display:grid; gap:14px; grid-template-columns: repeat(auto-fill, minmax(240px, 1fr)); }
    .server-card { border:1px solid var(--line); border-radius:14px; padding:14px; background:rgba(15,23,42,0.8); }
    .server-card h3 { margin:0 0 6px; }
    .server-details { font-size:13px; margin:10px 0; }
    .status-online { color:var(--ok); }
    .status-offline { color:var(--bad); }
    .no-servers { padding:24px; text-align:center; }
    .notification { position:fixed; top:20px; right:20px; padding:12px 20px; border-radius:4px; color:white; z-index:1000; box-shadow:0 4px 6px rgba(0,0,0,0.1); }
    .notification.success { background:var(--ok); }
    .notification.error { background:var(--bad); }
    .notification.info { background:var(--info); }
    .limits { display:grid; grid-template-columns: repeat(3, 1fr); gap:8px; }
    .logout { border:1px solid var(--line); background:#0b1224; color:#e2e8f0; }
    @media (max-width: 900px) { .layout { grid-template-columns: 1fr; } }
  </style>
</head>
<body>
  {{with .Notification}}<div class="notification {{.Level}}" role="status">{{.Message}}</div>{{end}}
  <div class="topbar">
    <div>
      <h1>pterodash</h1>
      <p>{{.User}}</p>
    </div>
    {{if .AuthEnabled}}
    <form method="post" action="/logout">
      <button class="logout" type="submit">{{.T.Logout}}</button>
    </form>
    {{end}}
  </div>
  <div class="layout">
    <div class="side">
      <div class="panel">
        <h2>{{.T.Settings}}</h2>
        <form id="api-settings-form" method="post" action="/settings">
          <div>
            <label for="panel-url">Panel URL</label>
            <input id="panel-url" name="panelUrl" type="url" value="{{.Settings.PanelURL}}" placeholder="https://panel.example.com">
          </div>
          <div>
            <label for="client-api-key">Client API Key</label>
            <input id="client-api-key" name="clientApiKey" type="password" autocomplete="off" placeholder="{{.Masked.ClientAPIKey}}">
            {{if .Settings.ClientAPIKey}}<label><input type="checkbox" name="clearClientApiKey" value="1" style="width:auto"> clear</label>{{end}}
          </div>
          <div>
            <label for="application-api-key">Application API Key</label>
            <input id="application-api-key" name="applicationApiKey" type="password" autocomplete="off" placeholder="{{.Masked.ApplicationAPIKey}}">
            {{if .Settings.ApplicationAPIKey}}<label><input type="checkbox" name="clearApplicationApiKey" value="1" style="width:auto"> clear</label>{{end}}
          </div>
          <button type="submit">{{.T.Save}}</button>
        </form>
      </div>
      <div class="panel">
        <h2>{{.T.CreateServer}}</h2>
        <form id="server-create-form" method="post" action="/servers">
          <input name="name" placeholder="name" required>
          <textarea name="description" placeholder="description"></textarea>
          <div class="limits">
            <input name="limits[cpu]" placeholder="cpu %" inputmode="numeric" required>
            <input name="limits[memory]" placeholder="memory MB" inputmode="numeric" required>
            <input name="limits[disk]" placeholder="disk MB" inputmode="numeric" required>
          </div>
          <input name="egg" placeholder="egg id" inputmode="numeric" required>
          <input name="image" placeholder="docker image" required>
          <input name="startup" placeholder="startup command" required>
          <input name="user" placeholder="owner user id" inputmode="numeric">
          <input name="allocation" placeholder="allocation id" inputmode="numeric">
          <button type="submit"{{if not .CanCreate}} title="{{.T.CreateNeedsAppKey}}"{{end}}>{{.T.Create}}</button>
        </form>
      </div>
    </div>
    <div class="panel">
      <h2>{{.T.Servers}}</h2>
      <div id="server-grid" class="server-grid">
        {{range .Servers}}
        <div class="server-card">
          <h3>{{.Name}}</h3>
          <p>{{.Description}}</p>
          <div class="server-details">
            <p>{{$.T.Status}}: <span class="server-status {{if .Online}}status-online{{else}}status-offline{{end}}">{{.Status}}</span></p>
            {{if .Node}}<p>{{$.T.Node}}: {{.Node}}</p>{{end}}
            <p>CPU {{.CPU}}% &middot; RAM {{.Memory}} MB &middot; Disk {{.Disk}} MB</p>
          </div>
          <a class="btn-primary" href="/servers/{{.Identifier}}/manage" target="_blank" rel="noopener">{{$.T.Manage}}</a>
        </div>
        {{else}}
        <p class="no-servers">{{.StateMessage}}</p>
        {{end}}
      </div>
    </div>
  </div>
  <script>
    (function () {
      const revision = {{.Revision}};
      const scheme = location.protocol === "https:" ? "wss://" : "ws://";
      const ws = new WebSocket(scheme + location.host + "/events");
      ws.onmessage = function (msg) {
        const ev = JSON.parse(msg.data);
        if (ev.type === "settings-changed" && (ev.revision || "") !== revision) {
          location.reload();
        }
      };
      const note = document.querySelector(".notification");
      if (note) {
        setTimeout(function () { note.remove(); }, 3000);
      }
    })();
  </script>
</body>
</html>
`))
