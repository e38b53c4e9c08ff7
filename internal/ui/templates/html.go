package templates

const pageHTML = `<!DOCTYPE html>
<html lang="ja">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"></script>
<script src="https://cdn.jsdelivr.net/npm/chart.js@4.4.1/dist/chart.umd.min.js"></script>
<style>
body{font-family:system-ui,"Hiragino Sans","Noto Sans JP",sans-serif;margin:0;background:#f5f6fa;color:#222}
header{background:#1f3a5f;color:#fff;padding:1rem 2rem}
main{display:grid;grid-template-columns:280px 1fr;gap:1.5rem;padding:1.5rem 2rem}
.card{background:#fff;border-radius:8px;padding:1rem;box-shadow:0 1px 3px rgba(0,0,0,.08)}
.metrics{display:grid;grid-template-columns:repeat(4,1fr);gap:1rem}
.metric .value{font-size:1.6rem;font-weight:600}
.modern-table{width:100%;border-collapse:collapse;font-size:.9rem}
.modern-table th,.modern-table td{padding:.4rem .6rem;border-bottom:1px solid #eee;text-align:right}
.modern-table th:first-child,.modern-table td:first-child{text-align:left}
.tabs button[aria-selected=true]{font-weight:700}
.bar{background:#4c78a8;height:.9rem}
fieldset{border:none;padding:0;margin:0 0 1rem}
</style>
</head>
<body data-signals="{{.Signals}}" data-init="@get('/sse/stream')">
<header>
<h1>{{.Title}}</h1>
<p>フィルタを変更すると全データが同時に更新されます</p>
</header>
<main>
<aside>{{template "filters" .Filters}}</aside>
<section>
{{template "status" .Status}}
{{template "metrics" .Metrics}}
{{template "charts" .Charts}}
{{template "matrices" .Matrices}}
{{template "sales" .Sales}}
{{template "customers" .Customers}}
</section>
</main>
<script>
const charts = {};
function drawChart(id, type, points) {
  const el = document.getElementById(id);
  if (!el || !window.Chart || !points) return;
  if (charts[id]) charts[id].destroy();
  charts[id] = new Chart(el, {type, data: {labels: points.map(p => p.x), datasets: [{data: points.map(p => p.y)}]}, options: {plugins: {legend: {display: type === 'pie'}}}});
}
window.renderCharts = function (c) {
  if (!c) return;
  drawChart('line-chart', 'line', c.line_chart);
  drawChart('pie-chart', 'pie', c.pie_chart);
  drawChart('bar-chart', 'bar', c.bar_chart);
};
</script>
</body>
</html>`

const fragmentsHTML = `
{{define "filters"}}<form id="filter-panel" class="card" data-on:submit="@post('/sse/filters')">
<h2>フィルタ</h2>
<fieldset>
<legend>期間</legend>
<input type="date" name="startDate" value="{{.StartDate}}" data-bind="startDate">
<input type="date" name="endDate" value="{{.EndDate}}" data-bind="endDate">
</fieldset>
<fieldset>
<legend>カテゴリ</legend>
{{range .Options.Categories}}<label><input type="checkbox" name="categories" value="{{.}}" data-bind="categories"{{if has $.Selected.Categories .}} checked{{end}}> {{.}}</label><br>
{{end}}</fieldset>
<fieldset>
<legend>地域</legend>
{{range .Options.Regions}}<label><input type="checkbox" name="regions" value="{{.}}" data-bind="regions"{{if has $.Selected.Regions .}} checked{{end}}> {{.}}</label><br>
{{end}}</fieldset>
<fieldset>
<legend>売上範囲</legend>
<input type="number" name="salesMin" value="{{.SalesMin}}" data-bind="salesMin">
<input type="number" name="salesMax" value="{{.SalesMax}}" data-bind="salesMax">
</fieldset>
<fieldset>
<legend>年齢範囲</legend>
<input type="number" name="ageMin" value="{{.AgeMin}}" data-bind="ageMin">
<input type="number" name="ageMax" value="{{.AgeMax}}" data-bind="ageMax">
</fieldset>
<fieldset>
<legend>性別</legend>
{{range .Options.Genders}}<label><input type="checkbox" name="genders" value="{{.}}" data-bind="genders"{{if has $.Selected.Genders .}} checked{{end}}> {{.}}</label><br>
{{end}}</fieldset>
<fieldset>
<legend>満足度</legend>
<select name="satisfaction" data-bind="satisfaction">
{{range .Satisfaction}}<option value="{{.}}"{{if eq . $.Selected.SatisfactionFilter}} selected{{end}}>{{if .}}{{.}}{{else}}すべて{{end}}</option>
{{end}}</select>
</fieldset>
<button type="submit">適用</button>
</form>{{end}}

{{define "status"}}<div id="status" class="card">{{if .Ready}}ラウンド #{{.Round}} ・ 更新 {{.CompletedAt}} ・ 売上 {{number .SalesRows}} 件 ・ 顧客 {{number .CustomerRows}} 件{{else}}データを読み込んでいます…{{end}}</div>{{end}}

{{define "metrics"}}<div id="metrics" class="metrics">
<div class="card metric"><div class="label">総売上</div><div class="value">{{yen .TotalSales}}</div></div>
<div class="card metric"><div class="label">平均日次売上</div><div class="value">{{yen .AvgDailySales}}</div></div>
<div class="card metric"><div class="label">総顧客数</div><div class="value">{{count .TotalCustomers}}</div></div>
<div class="card metric"><div class="label">平均満足度</div><div class="value">{{score .AvgSatisfaction}}</div></div>
</div>{{end}}

{{define "charts"}}<div id="charts" class="card" data-effect="window.renderCharts && window.renderCharts($charts)">
<h2>売上推移</h2><canvas id="line-chart"></canvas>
<h2>カテゴリ別売上</h2><canvas id="pie-chart"></canvas>
<h2>地域別売上</h2><canvas id="bar-chart"></canvas>
{{template "histogram" .Histogram}}
</div>{{end}}

{{define "histogram"}}<div id="histogram">
<h2>年齢分布</h2>
{{if .}}<table class="modern-table">
<tbody>
{{range .}}<tr><td>{{.Label}}</td><td><div class="bar" style="width:{{barWidth .Count}}px"></div></td><td>{{count .Count}}</td></tr>
{{end}}</tbody>
</table>{{else}}<p>該当する顧客がいません</p>{{end}}
</div>{{end}}

{{define "matrices"}}<div id="matrices" class="card">
<h2>クロス集計</h2>
<div class="tabs" role="tablist">
{{range .All}}<button type="button" role="tab" data-attr:aria-selected="$matrixTab == '{{.Name}}'" data-on:click="$matrixTab = '{{.Name}}'">{{title .Name}}</button>
{{end}}</div>
{{range .All}}{{template "matrix" .}}{{end}}
</div>{{end}}

{{define "matrix"}}<div id="matrix-{{.Name}}" data-show="$matrixTab == '{{.Name}}'">
<h3>{{title .Name}}</h3>
{{if .Rows}}<table class="modern-table">
<thead><tr>{{$m := .}}{{range .ColumnList}}<th>{{colLabel $m .}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr><td>{{.Key}}</td>{{range .Cells}}<td>{{cell $m.Measure .}}</td>{{end}}<td><strong>{{cell $m.Measure .Total}}</strong></td></tr>
{{end}}</tbody>
</table>{{else}}<p>データがありません</p>{{end}}
</div>{{end}}

{{define "sales"}}<div id="sales-table" class="card">
<h2>売上データ</h2>
<table class="modern-table">
<thead><tr><th>日付</th><th>売上</th><th>カテゴリ</th><th>地域</th></tr></thead>
<tbody>
{{range .Items}}<tr><td>{{date .Date}}</td><td>{{yen .Amount}}</td><td><span class="category-badge">{{.Category}}</span></td><td>{{.Region}}</td></tr>
{{end}}</tbody>
</table>
{{template "pager" pager "/sse/sales" .Page .Pages .Total}}
</div>{{end}}

{{define "customers"}}<div id="customer-table" class="card">
<h2>顧客データ</h2>
<table class="modern-table">
<thead><tr><th>顧客ID</th><th>年齢</th><th>性別</th><th>購入金額</th><th>満足度</th></tr></thead>
<tbody>
{{range .Items}}<tr><td>{{.ID}}</td><td>{{.Age}}</td><td>{{.Gender}}</td><td>{{yen .PurchaseAmount}}</td><td>{{.Satisfaction}}</td></tr>
{{end}}</tbody>
</table>
{{template "pager" pager "/sse/customers" .Page .Pages .Total}}
</div>{{end}}

{{define "pager"}}<nav class="pager">
{{if gt .Page 1}}<button type="button" data-on:click="@get('{{.Path}}?page={{.Prev}}')">前へ</button>{{end}}
<span>{{.Page}} / {{.Pages}} ページ（全 {{number .Total}} 件）</span>
{{if lt .Page .Pages}}<button type="button" data-on:click="@get('{{.Path}}?page={{.Next}}')">次へ</button>{{end}}
</nav>{{end}}
`
