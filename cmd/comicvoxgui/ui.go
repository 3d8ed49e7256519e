package main

const htmlContent = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Comicvox</title>
    <style>
        body { margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #0f0f0f; color: #eee; height: 100vh; display: flex; flex-direction: column; overflow: hidden; }
        .header { background: #1a1a1a; border-bottom: 1px solid #333; padding: 10px 16px; font-size: 14px; flex-shrink: 0; }
        .content { flex: 1; position: relative; display: flex; }
        #log { flex: 1; padding: 12px 16px; font-family: Consolas, monospace; font-size: 12px; color: #9a9; overflow-y: auto; white-space: pre-wrap; }
        #app { display: none; width: 100%; height: 100%; border: none; }
    </style>
</head>
<body>
    <div class="header">Comicvox &mdash; starting engine&hellip;</div>
    <div class="content">
        <div id="log"></div>
        <iframe id="app"></iframe>
    </div>
    <script>
        window.addLogLine = function(msg) {
            var log = document.getElementById('log');
            log.textContent += msg + "\n";
            log.scrollTop = log.scrollHeight;
        };
        window.enableApp = function(url) {
            document.getElementById('log').style.display = 'none';
            var app = document.getElementById('app');
            app.src = url;
            app.style.display = 'block';
            document.querySelector('.header').textContent = 'Comicvox';
        };
    </script>
</body>
</html>
`
