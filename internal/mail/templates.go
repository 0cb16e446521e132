package mail

import "fmt"

// Confirmation is the sign-up email carrying the confirmation link.
func Confirmation(to, link string) Message {
	return Message{
		To:      to,
		Subject: "メールアドレスの確認",
		Body: fmt.Sprintf("ご登録ありがとうございます。\n\n"+
			"以下のリンクをクリックしてメールアドレスの確認を完了してください。\n\n%s\n\n"+
			"このメールに心当たりがない場合は破棄してください。\n", link),
	}
}

// Recovery is the password reset email.
func Recovery(to, link string) Message {
	return Message{
		To:      to,
		Subject: "パスワードリセットのご案内",
		Body: fmt.Sprintf("パスワードリセットのリクエストを受け付けました。\n\n"+
			"以下のリンクから新しいパスワードを設定してください。\n\n%s\n\n"+
			"このリクエストに心当たりがない場合は、このメールを破棄してください。\n", link),
	}
}
