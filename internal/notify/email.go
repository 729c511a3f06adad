package notify

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/hitoshi/dealman/internal/model"
	"github.com/hitoshi/dealman/internal/token"
)

// manageLinkTTL は管理リンクのトークン有効期間。
// アラート自体の残存期間より長めに取り、失効直前の通知からでも
// キャンセル操作ができるようにする。
const manageLinkTTL = 45 * 24 * time.Hour

// emailTemplate は通知メールのHTML本文テンプレート。
var emailTemplate = template.Must(template.New("notification").Parse(`<html>
<body style="font-family: sans-serif; color: #222;">
<p>あなたのアラート（{{.Criteria}}）に一致するセールが見つかりました。</p>
<table cellpadding="8">
{{range .Deals}}
<tr>
  <td><img src="{{.ImageURL}}" width="96" alt=""></td>
  <td>
    <a href="{{.ListingURL}}"><strong>{{.ListingName}}</strong></a><br>
    {{.PriceLine}} <span style="color: #c00;">{{.DiscountLine}}</span><br>
    <span style="color: #666;">{{.Store}}</span>
  </td>
</tr>
{{end}}
</table>
<p>このアラートはあと{{.DaysRemaining}}日で失効します。</p>
<p style="font-size: 12px; color: #666;">
  通知を停止するには<a href="{{.ManageURL}}">こちら</a>からアラートをキャンセルしてください。
</p>
</body>
</html>`))

// dealView はテンプレートに渡すDealの表示用データ。
type dealView struct {
	ListingName  string
	ListingURL   string
	ImageURL     string
	Store        string
	PriceLine    string
	DiscountLine string
}

// emailView はテンプレートに渡すルートデータ。
type emailView struct {
	Criteria      string
	Deals         []dealView
	DaysRemaining int
	ManageURL     string
}

// Renderer は通知イベントからメールの件名と本文を組み立てる。
type Renderer struct {
	signer  *token.Signer
	baseURL string
}

// NewRenderer はRendererの新しいインスタンスを生成する。
// baseURLは管理リンクの組み立てに使用する（例: "https://deals.example.com"）。
func NewRenderer(signer *token.Signer, baseURL string) *Renderer {
	return &Renderer{signer: signer, baseURL: strings.TrimRight(baseURL, "/")}
}

// Render は通知イベント1件分のメールを組み立てる。
func (r *Renderer) Render(ev model.NotificationEvent) (subject, htmlBody, plainBody string, err error) {
	criteria := strings.TrimSpace(ev.Alert.Brand + " " + ev.Alert.Model)
	if criteria == "" {
		criteria = "すべてのシューズ"
	}
	subject = fmt.Sprintf("%s が $%d 以下になりました", criteria, ev.Alert.TargetPrice)

	tok, err := r.signer.Sign(ev.Alert.Email, time.Now().Add(manageLinkTTL))
	if err != nil {
		return "", "", "", fmt.Errorf("管理リンクトークンの発行に失敗: %w", err)
	}

	view := emailView{
		Criteria:      criteria,
		DaysRemaining: ev.DaysRemaining,
		ManageURL:     r.baseURL + "/alerts/cancel?token=" + tok,
	}

	var plain strings.Builder
	fmt.Fprintf(&plain, "アラート（%s）に一致するセール:\n\n", criteria)
	for _, d := range ev.Deals {
		view.Deals = append(view.Deals, dealView{
			ListingName:  d.ListingName,
			ListingURL:   d.ListingURL,
			ImageURL:     d.ImageURL,
			Store:        d.Store,
			PriceLine:    priceLine(&d),
			DiscountLine: discountLine(&d),
		})
		fmt.Fprintf(&plain, "- %s %s %s (%s)\n  %s\n", d.ListingName, priceLine(&d), discountLine(&d), d.Store, d.ListingURL)
	}
	fmt.Fprintf(&plain, "\nキャンセル: %s\n", view.ManageURL)

	var html strings.Builder
	if err := emailTemplate.Execute(&html, view); err != nil {
		return "", "", "", fmt.Errorf("メールテンプレートの展開に失敗: %w", err)
	}
	return subject, html.String(), plain.String(), nil
}

// priceLine はDealの価格表示行を組み立てる。
func priceLine(d *model.Deal) string {
	if d.SalePrice != nil && d.OriginalPrice != nil {
		return fmt.Sprintf("$%.2f（通常 $%.2f）", *d.SalePrice, *d.OriginalPrice)
	}
	if d.SalePriceLow != nil && d.SalePriceHigh != nil {
		return fmt.Sprintf("$%.2f〜$%.2f", *d.SalePriceLow, *d.SalePriceHigh)
	}
	return ""
}

// discountLine はDealの割引率表示を組み立てる。
func discountLine(d *model.Deal) string {
	if d.DiscountPercent != nil {
		return fmt.Sprintf("%d%% OFF", *d.DiscountPercent)
	}
	if d.DiscountPercentUpTo != nil {
		return fmt.Sprintf("最大%d%% OFF", *d.DiscountPercentUpTo)
	}
	return ""
}
