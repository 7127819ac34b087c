package controller

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	helper "tokoku_backend/internals/helpers"

	"tokoku_backend/internals/features/payment/gateway"
	"tokoku_backend/internals/features/payment/order/dto"
	"tokoku_backend/internals/features/payment/order/model"
)

var validate = validator.New()

// minorUnits: konversi satuan major → minor untuk provider. Wajib round,
// bukan truncate — 19.99 tersimpan sebagai 1998.9999... di float64.
func minorUnits(major float64) int64 {
	return int64(math.Round(major * 100))
}

type OrderController struct {
	DB      *gorm.DB
	Gateway gateway.Initializer
}

func NewOrderController(db *gorm.DB, gw gateway.Initializer) *OrderController {
	return &OrderController{DB: db, Gateway: gw}
}

// 🟢 CREATE CHECKOUT: buat order + transaksi pending, buka sesi bayar di gateway
func (ctrl *OrderController) CreateCheckout(c *fiber.Ctx) error {
	var req dto.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Body request tidak valid")
	}
	if err := validate.Struct(&req); err != nil {
		return helper.ValidationError(c, err)
	}

	// reference = kunci korelasi ke provider; order number untuk manusia
	reference := "ref-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
	orderNumber := fmt.Sprintf("ORD-%s", strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10]))

	order := model.Order{
		OrderNumber:           orderNumber,
		OrderStatus:           model.OrderStatusPending,
		OrderPaymentStatus:    model.PaymentStatusPending,
		OrderPaymentReference: &reference,
		OrderTotalAmount:      req.TotalAmount,
		OrderCustomerEmail:    req.CustomerEmail,
	}
	ptx := model.PaymentTransaction{
		PaymentTransactionReference: reference,
		PaymentTransactionAmount:    req.TotalAmount,
		PaymentTransactionStatus:    model.TransactionStatusPending,
	}

	if err := ctrl.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		ptx.PaymentTransactionOrderID = &order.OrderID
		return tx.Create(&ptx).Error
	}); err != nil {
		log.Printf("[CHECKOUT] gagal buat order: %v", err)
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal membuat order")
	}

	initCtx, cancel := context.WithTimeout(c.UserContext(), 15*time.Second)
	defer cancel()

	session, err := ctrl.Gateway.InitializeTransaction(initCtx, gateway.InitializeRequest{
		Reference:     reference,
		CustomerEmail: req.CustomerEmail,
		Amount:        minorUnits(req.TotalAmount), // provider pakai satuan minor
		CallbackURL:   req.CallbackURL,
	})
	if err != nil {
		// order & transaksi pending sudah tercatat; storefront bisa retry
		// init, dan sweep tetap mengawasi reference-nya
		log.Printf("[CHECKOUT] init gateway gagal untuk %s: %v", reference, err)
		return helper.Error(c, fiber.StatusBadGateway, "Gagal membuka sesi pembayaran")
	}

	return helper.SuccessWithCode(c, fiber.StatusCreated, "Checkout berhasil dibuat. Silakan lanjutkan pembayaran.", dto.CheckoutResponse{
		OrderNumber:      order.OrderNumber,
		PaymentReference: reference,
		TotalAmount:      order.OrderTotalAmount,
		AuthorizationURL: session.AuthorizationURL,
	})
}

// 🟢 GET ORDER: snapshot status order untuk polling storefront
func (ctrl *OrderController) GetOrderByNumber(c *fiber.Ctx) error {
	orderNumber := c.Params("order_number")

	var order model.Order
	if err := ctrl.DB.WithContext(c.UserContext()).
		Where("order_number = ?", orderNumber).
		First(&order).Error; err != nil {
		return helper.Error(c, fiber.StatusNotFound, "Order tidak ditemukan")
	}

	var ptx model.PaymentTransaction
	var txData *model.PaymentTransaction
	if ref := order.Reference(); ref != "" {
		if err := ctrl.DB.WithContext(c.UserContext()).
			Where("payment_transaction_reference = ?", ref).
			First(&ptx).Error; err == nil {
			txData = &ptx
		}
	}

	return helper.Success(c, "Order ditemukan", fiber.Map{
		"order":       order,
		"transaction": txData,
	})
}
