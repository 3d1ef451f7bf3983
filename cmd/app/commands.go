package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	thirdPartyI18n "github.com/nicksnyder/go-i18n/v2/i18n"

	"linkhub-go/internal/apperrors"
	"linkhub-go/internal/dto"
	"linkhub-go/internal/i18n"
	"linkhub-go/internal/service"
)

// 控制台命令没有 HTTP 中间件帮忙挑语言，固定用英文
func commandContext(bundle *thirdPartyI18n.Bundle) context.Context {
	localizer := thirdPartyI18n.NewLocalizer(bundle, "en")
	return context.WithValue(context.Background(), i18n.LocalizerKey, localizer)
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

// commandError 业务错误里存的是 messageID，打印前先翻译
func commandError(ctx context.Context, err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return i18n.Localize(ctx, appErr.Message)
	}
	return err.Error()
}

func runCreateUser(auth *service.AuthService, bundle *thirdPartyI18n.Bundle) {
	ctx := commandContext(bundle)
	reader := bufio.NewReader(os.Stdin)

	username := prompt(reader, "Username: ")
	password := prompt(reader, "Password: ")
	email := prompt(reader, "Email: ")
	role := prompt(reader, "Role (user/admin, default user): ")

	user, err := auth.CreateUser(ctx, username, password, email, role)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to create user:", commandError(ctx, err))
		os.Exit(1)
	}
	fmt.Printf("Created user %q with role %s\n", user.Username, user.Role)
}

func runCreateLink(links *service.ShortLinkService, bundle *thirdPartyI18n.Bundle) {
	ctx := commandContext(bundle)
	reader := bufio.NewReader(os.Stdin)

	req := dto.CreateShortLinkRequest{
		URL:  prompt(reader, "Target URL: "),
		Slug: prompt(reader, "Custom slug (blank for random): "),
	}

	if days := prompt(reader, "Expires in days (blank for never): "); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			fmt.Fprintln(os.Stderr, "Failed to create short link: expiration must be a positive number of days")
			os.Exit(1)
		}
		expiresAt := time.Now().AddDate(0, 0, n)
		req.ExpiresAt = &expiresAt
	}

	// 命令行创建的短链没有属主，只有管理员能在后台删除
	link, err := links.Create(ctx, req, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to create short link:", commandError(ctx, err))
		os.Exit(1)
	}
	fmt.Printf("Created short link %s -> %s\n", link.Slug, link.OriginalURL)
}
